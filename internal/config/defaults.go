package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in configuration. Category rules mirror the
// product's shipped risk judgments; users tune them in config.yaml
// rather than in code.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".local", "share", "reclaim")

	return &Config{
		Roots:            []string{home},
		DataDir:          dataDir,
		TrashDir:         filepath.Join(dataDir, "trash"),
		Concurrency:      8,
		IOTimeoutSeconds: 30,
		TopK:             50,
		MaxRisk:          "low",
		Action:           "recycle",
		ConfirmDelete:    false,
		RedactPaths:      true,
		MinFileAgeHours:  1,
		ProtectedPaths:   []string{},
		PolicyRules: []PolicyRule{
			// Places where deletion is possible but deserves a second
			// look: user documents and media, browser profile data.
			{Prefix: filepath.Join(home, "Documents"), Disposition: "caution"},
			{Prefix: filepath.Join(home, "Pictures"), Disposition: "caution"},
			{Prefix: filepath.Join(home, "Desktop"), Disposition: "caution"},
			{Prefix: `C:\Users`, Pattern: "*.pst", Disposition: "caution"},
		},
		Classifier: ClassifierConfig{
			Rules: []ClassifierRule{
				{
					Name:     "user-temp",
					Category: "temp",
					Segments: []string{"/appdata/local/temp/", "/tmp/", "/var/tmp/", "/windows/temp/"},
				},
				{
					Name:       "temp-extensions",
					Category:   "temp",
					Extensions: []string{".tmp", ".temp", ".~tmp", ".bak~"},
				},
				{
					Name:     "browser-caches",
					Category: "browser_cache",
					Segments: []string{
						"/google/chrome/user data/",
						"/microsoft/edge/user data/",
						"/mozilla/firefox/profiles/",
					},
					Patterns: []string{"*cache*", "*gpucache*"},
				},
				{
					Name:     "app-caches",
					Category: "cache",
					Segments: []string{"/cache/", "/caches/", "/code cache/", "/gpucache/", "/.cache/"},
				},
				{
					Name:     "package-caches",
					Category: "cache",
					Segments: []string{"/pip/cache/", "/npm-cache/", "/yarn/cache/", "/nuget/cache/", "/go-build/"},
				},
				{
					Name:       "logs-and-dumps",
					Category:   "log",
					Segments:   []string{"/logs/", "/crashdumps/"},
					Extensions: []string{".log", ".dmp", ".etl"},
				},
				{
					Name:     "recycle-bin-leftovers",
					Category: "recycle_bin_leftover",
					Segments: []string{"/$recycle.bin/", "/.trash/", "/.trash-1000/"},
				},
				{
					Name:     "duplicate-candidates",
					Category: "duplicate_candidate",
					Patterns: []string{"* (1).*", "* (2).*", "*-copy.*", "* copy.*", "*_copy.*"},
				},
			},
			RiskTiers: map[string]string{
				"temp":                 "safe",
				"cache":                "safe",
				"log":                  "low",
				"browser_cache":        "low",
				"recycle_bin_leftover": "low",
				"large_file":           "medium",
				"duplicate_candidate":  "medium",
				"other":                "medium",
				"unclassified":         "high",
			},
			LargeFileMinMB:      500,
			LargeFileMinAgeDays: 180,
			RecentWindowHours:   24,
			EscalateExtensions: []string{
				".exe", ".dll", ".sys", ".ocx", ".drv", ".msi",
				".so", ".dylib", ".kext",
			},
		},
	}
}
