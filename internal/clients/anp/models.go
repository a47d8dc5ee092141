package anp

// MovementEntry is one raw escale entry from the ANP movement feed.
// Field names mirror the WCF service's lowercase-first JSON keys.
type MovementEntry struct {
	VesselName string `json:"nOM_NAVIREField"`
	IMO        string `json:"nUMERO_LLOYDField"`
	EscaleNo   string `json:"nUMERO_ESCALEField"`
	Situation  string `json:"sITUATIONField"`
	Agent      string `json:"cONSIGNATAIREField"`
	PortCode   string `json:"cODE_SOCIETEField"`
	VesselType string `json:"tYP_NAVIREField"`
	Provenance string `json:"pROVField"`
	DateRaw    string `json:"dATE_SITUATIONField"`
	TimeRaw    string `json:"hEURE_SITUATIONField"`
}
