package config

// Default keyword lists for the escalation pattern trigger. Queries containing
// any of these escalate even when the local cache has plenty of hits, because
// role and department queries are best answered by the richer remote profile
// data.
var (
	defaultRoleKeywords = []string{
		"engineer", "developer", "designer", "architect", "manager", "lead",
		"analyst", "recruiter", "golang", "python", "java", "typescript",
		"react", "kubernetes", "frontend", "backend", "devops", "mobile",
		"data", "ml", "security", "qa",
	}
	defaultDepartmentKeywords = []string{
		"engineering", "design", "product", "sales", "marketing", "hr",
		"finance", "legal", "support", "operations", "research",
	}
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/meibo/data/db/directory.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/meibo/data/indices/bleve"
	}
	if cfg.Remote.TimeoutSeconds == 0 {
		cfg.Remote.TimeoutSeconds = 15
	}
	if cfg.Search.LocalLimit == 0 {
		cfg.Search.LocalLimit = 20
	}
	if cfg.Search.MinLocalResults == 0 {
		cfg.Search.MinLocalResults = 3
	}
	if cfg.Search.StrongScore == 0 {
		cfg.Search.StrongScore = 5.0
	}
	if cfg.Search.MinQueryLength == 0 {
		cfg.Search.MinQueryLength = 3
	}
	if cfg.Search.RoleKeywords == nil {
		cfg.Search.RoleKeywords = append([]string(nil), defaultRoleKeywords...)
	}
	if cfg.Search.DepartmentKeywords == nil {
		cfg.Search.DepartmentKeywords = append([]string(nil), defaultDepartmentKeywords...)
	}
	if cfg.Search.MaxFragments == 0 {
		cfg.Search.MaxFragments = 3
	}
	if cfg.Search.MinFragmentLength == 0 {
		cfg.Search.MinFragmentLength = 3
	}
	if cfg.Search.EnhanceDelayMs == 0 {
		cfg.Search.EnhanceDelayMs = 150
	}
	if cfg.Search.EnhanceConfidence == 0 {
		cfg.Search.EnhanceConfidence = 0.9
	}
}
