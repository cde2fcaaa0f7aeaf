// Package config loads runtime configuration from the environment.
// Every variable carries the SOLWATCH_ prefix and has a sensible
// default so a bare `solwatch serve` still starts.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string

	TelegramToken string
	TelegramAPI   string
	TelegramPoll  int

	// Groups watched for token signals. The venue group carries order
	// confirmations and is watched separately.
	GroupsCSV   string
	VenueGroup  string
	VenueTarget string

	StrategyPath string
	DBPath       string

	DedupTTLMinutes    int
	RegistryTTLMinutes int
	MirrorToGroups     bool

	AllowedUserIDsCSV string

	DigestCron    string
	DigestEnabled bool
	WatchEnabled  bool
}

func FromEnv() Config {
	dataDir := stringOrDefault("SOLWATCH_DATA_DIR", "/data")

	return Config{
		Environment: stringOrDefault("SOLWATCH_ENV", "development"),
		HTTPAddr:    stringOrDefault("SOLWATCH_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,

		TelegramToken: os.Getenv("SOLWATCH_TELEGRAM_TOKEN"),
		TelegramAPI:   stringOrDefault("SOLWATCH_TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramPoll:  intOrDefault("SOLWATCH_TELEGRAM_POLL_SECONDS", 25),

		GroupsCSV:   stringOrDefault("SOLWATCH_GROUPS", "@SolanaNewPumpfun"),
		VenueGroup:  stringOrDefault("SOLWATCH_VENUE_GROUP", "@solana_trojanbot"),
		VenueTarget: stringOrDefault("SOLWATCH_VENUE_TARGET", "@solana_trojanbot"),

		StrategyPath: stringOrDefault("SOLWATCH_STRATEGY_PATH", filepath.Join(dataDir, "strategies.json")),
		DBPath:       stringOrDefault("SOLWATCH_DB_PATH", filepath.Join(dataDir, "solwatch.sqlite")),

		DedupTTLMinutes:    intOrDefault("SOLWATCH_DEDUP_TTL_MINUTES", 360),
		RegistryTTLMinutes: intOrDefault("SOLWATCH_REGISTRY_TTL_MINUTES", 60),
		MirrorToGroups:     boolOrDefault("SOLWATCH_MIRROR_TO_GROUPS", false),

		AllowedUserIDsCSV: strings.TrimSpace(os.Getenv("SOLWATCH_ALLOWED_USER_IDS")),

		DigestCron:    stringOrDefault("SOLWATCH_DIGEST_CRON", "0 9 * * *"),
		DigestEnabled: boolOrDefault("SOLWATCH_DIGEST_ENABLED", true),
		WatchEnabled:  boolOrDefault("SOLWATCH_WATCH_STRATEGY_FILE", true),
	}
}

// Groups splits the watched-group list, tolerating commas, semicolons
// and whitespace as separators.
func (c Config) Groups() []string {
	return splitList(c.GroupsCSV)
}

// AllowedUserIDs parses the allow-list. An empty list means every user
// may talk to the bot.
func (c Config) AllowedUserIDs() []int64 {
	var ids []int64
	for _, raw := range splitList(c.AllowedUserIDsCSV) {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, parsed)
	}
	return ids
}

var listSeparators = regexp.MustCompile(`[;,\s]+`)

func splitList(raw string) []string {
	var items []string
	for _, part := range listSeparators.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
