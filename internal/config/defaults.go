package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/montero/data/db/portal.db"
	}
	if cfg.Storage.DirectoryIndexPath == "" {
		cfg.Storage.DirectoryIndexPath = "/usr/local/var/montero/data/indices/directory"
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".xlsx"}
	}
	if cfg.Portal.BaseURL == "" {
		cfg.Portal.BaseURL = "http://" + cfg.Server.Addr()
	}
	if cfg.Autocomplete.Endpoint == "" {
		cfg.Autocomplete.Endpoint = "/api/usuarios/buscar"
	}
	if cfg.Autocomplete.MinDigits == 0 {
		cfg.Autocomplete.MinDigits = 5
	}
	if cfg.Autocomplete.DebounceMS == 0 {
		cfg.Autocomplete.DebounceMS = 300
	}
	if cfg.Autocomplete.MessageTTLMS == 0 {
		cfg.Autocomplete.MessageTTLMS = 5000
	}
}
