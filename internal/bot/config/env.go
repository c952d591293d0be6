package config

import (
	"os"

	"github.com/dmitrijs2005/outlinebot/internal/flagx"
)

// parseEnv reads BOT_TOKEN and ADMINS (comma separated ids). Keeping the
// token out of argv hides it from process listings.
func parseEnv(config *Config) {
	if token, ok := os.LookupEnv("BOT_TOKEN"); ok && token != "" {
		config.BotToken = token
	}

	if admins, ok := os.LookupEnv("ADMINS"); ok && admins != "" {
		var ids flagx.Int64List
		if err := ids.Set(admins); err != nil {
			panic(err)
		}
		config.AdminIDs = ids
	}
}
