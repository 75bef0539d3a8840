package config

import (
	"net"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ApplyEnv overlays environment variables on top of the file config.
//
// MENO_LISTEN, MENO_TIMEZONE, MENO_DATA_DIR, MENO_STORAGE_DRIVER,
// MENO_LOG_LEVEL and MENO_DEV map onto their YAML counterparts. The bare
// PORT and API_KEY variables are honored too, since that is how the
// hosting environment usually hands them over.
func ApplyEnv(c *Config) error {
	v := viper.New()
	v.SetEnvPrefix("MENO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("api_key", "API_KEY")

	if s := v.GetString("listen"); s != "" {
		c.Listen = s
	}
	if s := v.GetString("port"); s != "" {
		if _, err := strconv.Atoi(s); err == nil {
			host, _, err := net.SplitHostPort(c.Listen)
			if err != nil {
				host = ""
			}
			c.Listen = net.JoinHostPort(host, s)
		}
	}
	if s := v.GetString("timezone"); s != "" {
		c.Timezone = s
	}
	if s := v.GetString("data_dir"); s != "" {
		c.DataDir = s
	}
	if s := v.GetString("storage.driver"); s != "" {
		c.Storage.Driver = s
	}
	if s := v.GetString("log_level"); s != "" {
		c.LogLevel = s
	}
	if s := v.GetString("google.api_key"); s != "" {
		c.Google.APIKey = s
	} else if s := v.GetString("api_key"); s != "" {
		c.Google.APIKey = s
	}
	if s := v.GetString("dev"); s != "" {
		c.Dev = v.GetBool("dev")
	}

	c.Normalize()
	return nil
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(p string) (string, error) {
	return homedir.Expand(p)
}
