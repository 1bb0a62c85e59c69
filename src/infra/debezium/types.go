package debezium

// CDCEvent é o envelope do Debezium (sem schema) para uma linha alterada.
type CDCEvent struct {
	Before    map[string]interface{} `json:"before"`
	After     map[string]interface{} `json:"after"`
	Source    CDCSource              `json:"source"`
	Operation string                 `json:"op"` // c=create, u=update, d=delete, r=read
	TsMs      int64                  `json:"ts_ms"`
}

type CDCSource struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot"`
	DB        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	TxID      int64  `json:"txId"`
	LSN       int64  `json:"lsn"`
}
