package repository

// SettingsEntry es un documento JSON de configuración por site y key.
type SettingsEntry struct {
	Base
	SiteID string
	Key    string
	Value  string // JSON crudo
}
