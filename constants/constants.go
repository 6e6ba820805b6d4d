package constants

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// LoadEnv reads a .env file into the environment. A missing file is fine;
// variables already set are never overwritten.
func LoadEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "loading .env")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetOutDir() string {
	return getEnv("ABCDEX_OUT_DIR", "./out")
}

func GetLogLevel() string {
	return getEnv("ABCDEX_LOG_LEVEL", "info")
}

func GetAddr() string {
	return getEnv("ABCDEX_ADDR", ":8080")
}

func GetStrict() bool {
	strict, err := strconv.ParseBool(getEnv("ABCDEX_STRICT", "false"))
	return err == nil && strict
}

func GetCORSOrigins() []string {
	var res []string
	for _, o := range strings.Split(getEnv("ABCDEX_CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

// MaxUploadBytes caps request bodies accepted by the HTTP service.
const MaxUploadBytes = 8 << 20
