package credentials

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"
)

// authStatusKey is the ItemTable key under which the IDE persists its
// auth-status JSON.
const authStatusKey = "windsurfAuthStatus"

// ReadAuthDB opens the IDE's state database read-only and returns the
// auth-status JSON value. Implements the SQLite leg of the Inspector.
func (systemInspector) ReadAuthDB(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("state database: %w", err)
	}

	dsn := "file:" + path + "?mode=ro&immutable=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return "", fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	var value string
	row := db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", authStatusKey)
	if err := row.Scan(&value); err != nil {
		return "", fmt.Errorf("query auth status: %w", err)
	}
	return value, nil
}

// stateDBPath is the platform location of the IDE's global storage
// database.
func stateDBPath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Windsurf", "User", "globalStorage", "state.vscdb")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Windsurf", "User", "globalStorage", "state.vscdb")
	default:
		return filepath.Join(home, ".config", "Windsurf", "User", "globalStorage", "state.vscdb")
	}
}

// legacyConfigPath is the pre-IDE config file that may still hold a key.
func legacyConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codeium", "config.json")
}

// apiKeyFromAuthStatus extracts .apiKey from auth-status JSON.
func apiKeyFromAuthStatus(value string) string {
	return gjson.Get(value, "apiKey").String()
}

// apiKeyFromLegacyConfig reads .apiKey from the legacy config file.
func apiKeyFromLegacyConfig(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "apiKey").String()
}
