package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
)

type Config struct {
	HTTPPort  string `json:"http_port"`
	HTTPSPort string `json:"https_port"`
	Domain    string `json:"domain"`
	TURNPort  int    `json:"turn_port"`
	TURNRealm string `json:"turn_realm"`
	DBPath    string `json:"db_path"`
	PublicDir string `json:"public_dir"`
	MaxRooms  int    `json:"max_rooms"`

	// Backend-only mode fields
	HTTPOnly    bool   `json:"http_only"`
	FrontendURI string `json:"frontend_uri"`

	// Secrets are loaded from the keys directory or env, never config.json.
	JWTSecret string     `json:"-"`
	VAPIDKeys *VAPIDKeys `json:"-"`
}

type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Load reads config.json beside the executable if present, fills gaps from
// the environment, then applies command-line overrides.
func Load(httpOnly *bool) *Config {
	cfg := &Config{}
	if data, err := os.ReadFile(configFilePath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Printf("Warning: failed to parse config.json: %v\n", err)
			cfg = &Config{}
		} else {
			fmt.Println("NOTE: Custom configuration loaded from config.json")
		}
	}

	if cfg.HTTPPort == "" {
		cfg.HTTPPort = getEnv("HTTP_PORT", "8080")
	}
	if cfg.HTTPSPort == "" {
		cfg.HTTPSPort = getEnv("HTTPS_PORT", "8443")
	}
	if cfg.Domain == "" {
		cfg.Domain = getEnv("DOMAIN", "localhost")
	}
	if cfg.TURNPort == 0 {
		cfg.TURNPort = getEnvInt("TURN_PORT", 3478)
	}
	if cfg.TURNRealm == "" {
		cfg.TURNRealm = getEnv("TURN_REALM", "parlor")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = getEnv("DB_PATH", "parlor.db")
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = getEnv("PUBLIC_DIR", "public")
	}
	if cfg.MaxRooms == 0 {
		cfg.MaxRooms = getEnvInt("MAX_ROOMS", 5)
	}
	if cfg.FrontendURI == "" {
		cfg.FrontendURI = getEnv("FRONTEND_URI", "")
	}

	if httpOnly != nil && *httpOnly {
		cfg.HTTPOnly = true
	}

	cfg.JWTSecret = loadOrGenerateJWTSecret()
	cfg.VAPIDKeys = loadOrGenerateVAPIDKeys()

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func configFilePath() string {
	execPath, err := os.Executable()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(filepath.Dir(execPath), "config.json")
}

// KeysDirectory is where generated secrets and TURN credentials persist,
// next to the executable.
func KeysDirectory() string {
	execPath, err := os.Executable()
	if err != nil {
		return "keys"
	}
	return filepath.Join(filepath.Dir(execPath), "keys")
}

// CertsDirectory holds the autocert cache.
func CertsDirectory() string {
	execPath, err := os.Executable()
	if err != nil {
		return "certs"
	}
	return filepath.Join(filepath.Dir(execPath), "certs")
}

func loadOrGenerateJWTSecret() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}

	keysDir := KeysDirectory()
	secretFile := filepath.Join(keysDir, "jwt-secret.key")

	if data, err := os.ReadFile(secretFile); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret
		}
	}

	buf := make([]byte, 32)
	rand.Read(buf)
	secret := base64.URLEncoding.EncodeToString(buf)

	if err := os.MkdirAll(keysDir, 0700); err == nil {
		if err := os.WriteFile(secretFile, []byte(secret), 0600); err != nil {
			fmt.Printf("Warning: failed to save JWT secret: %v\n", err)
			fmt.Println("Invite tokens will not survive a restart unless JWT_SECRET is set")
		}
	}
	return secret
}

func loadOrGenerateVAPIDKeys() *VAPIDKeys {
	subject := getEnv("VAPID_SUBJECT", "mailto:admin@parlor.chat")

	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if publicKey != "" && privateKey != "" {
		return &VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey, Subject: subject}
	}

	keysDir := KeysDirectory()
	publicFile := filepath.Join(keysDir, "vapid-public.key")
	privateFile := filepath.Join(keysDir, "vapid-private.key")

	if publicData, err := os.ReadFile(publicFile); err == nil {
		if privateData, err := os.ReadFile(privateFile); err == nil {
			return &VAPIDKeys{
				PublicKey:  strings.TrimSpace(string(publicData)),
				PrivateKey: strings.TrimSpace(string(privateData)),
				Subject:    subject,
			}
		}
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		panic("failed to generate VAPID keys: " + err.Error())
	}

	if err := os.MkdirAll(keysDir, 0700); err == nil {
		os.WriteFile(publicFile, []byte(publicKey), 0600)
		os.WriteFile(privateFile, []byte(privateKey), 0600)
	}

	return &VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey, Subject: subject}
}
