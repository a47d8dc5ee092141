package domain

import "fmt"

// portNames maps port authority society codes to display names.
// Codes come from the national movement feed.
var portNames = map[string]string{
	"07": "Jorf Lasfar",
	"03": "Safi",
	"06": "Nador",
	"01": "Casablanca",
	"02": "Mohammedia",
	"05": "Agadir",
	"08": "Tanger",
}

// PortName returns the display name for a port code, falling back to the
// raw code for ports outside the directory
func PortName(code string) string {
	if name, ok := portNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Port %s", code)
}
