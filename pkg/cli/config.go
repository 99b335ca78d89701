/*
Package cli wires command-line flags, environment variables, and the system
keyring into a [Config] shared by the chargedash binaries.

The package uses [keyring]'s platform-agnostic interface for storing OAuth
tokens in an OS-dependent credential store.

# Example

	config := cli.NewConfig(cli.FlagRun | cli.FlagKeyring)
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()

	token, err := config.ResolveToken(ctx, snapshot)
*/
package cli

import (
	"context"
	"errors"
	"flag"
	"os"
	"sort"
	"strings"

	"chargedash/internal/log"
	"chargedash/pkg/api"
	"chargedash/pkg/auth"
	"chargedash/pkg/cache"

	"github.com/99designs/keyring"
)

// Environment variable names used by [Config.ReadFromEnvironment] to fill in
// parameters not set on the command line.
const (
	EnvEmail        = "CHARGEDASH_EMAIL"
	EnvConfigFile   = "CHARGEDASH_CONFIG"
	EnvTokenName    = "CHARGEDASH_TOKEN_NAME"
	EnvKeyringType  = "CHARGEDASH_KEYRING_TYPE"
	EnvKeyringPass  = "CHARGEDASH_KEYRING_PASSWORD"
	EnvKeyringPath  = "CHARGEDASH_KEYRING_PATH"
	EnvKeyringDebug = "CHARGEDASH_KEYRING_DEBUG"
)

// Flag controls which options are scanned from the command line and
// environment.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagRun     Flag = 1 // Enable fetch/render options (email, offline, discover, config file).
	FlagKeyring Flag = 2 // Enable system keyring options.
	FlagAll     Flag = FlagRun | FlagKeyring
)

var ErrKeyNotFound = keyring.ErrKeyNotFound

// Config fields determine how the client authenticates and which mode the
// run uses.
type Config struct {
	Flags            Flag
	Email            string
	Offline          bool
	Discover         bool
	ConfigFile       string
	KeyringTokenName string
	Backend          keyring.Config
	BackendType      backendType
	Debug            bool

	password *string
}

func NewConfig(flags Flag) *Config {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return &c
}

func (c *Config) RegisterCommandLineFlags() {
	if c.Flags.isSet(FlagRun) {
		flag.StringVar(&c.Email, "email", "", "Tesla account email. Triggers an online fetch. Defaults to $CHARGEDASH_EMAIL.")
		flag.BoolVar(&c.Offline, "offline", false, "Render from cached data only; never touch the network.")
		flag.BoolVar(&c.Discover, "discover", false, "Write raw API payloads to the data directory and skip rendering.")
		flag.StringVar(&c.ConfigFile, "config", "", "YAML configuration `file`. Defaults to $CHARGEDASH_CONFIG.")
	}
	if c.Flags.isSet(FlagKeyring) {
		flag.StringVar(&c.KeyringTokenName, "token-name", "", "System keyring `name` for the OAuth token. Defaults to $CHARGEDASH_TOKEN_NAME.")
		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $CHARGEDASH_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "Keyring `directory` for file-backed keyring types")
	}
	flag.BoolVar(&c.Debug, "debug", false, "Enable debug logging")
}

// ReadFromEnvironment populates c using environment variables. Values that
// are already populated are not overwritten, so call this after flag.Parse.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagRun) {
		if c.Email == "" {
			c.Email = os.Getenv(EnvEmail)
		}
		if c.ConfigFile == "" {
			c.ConfigFile = os.Getenv(EnvConfigFile)
		}
	}
	if c.Flags.isSet(FlagKeyring) {
		if c.KeyringTokenName == "" {
			c.KeyringTokenName = os.Getenv(EnvTokenName)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvKeyringPass)
			c.password = &password
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvKeyringPath)
		}
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvKeyringDebug)
	}
}

// ResolveToken produces the session token for an online run. Resolution
// order: the cached token (refreshed if expired), the system keyring, and
// finally the interactive browser login. The snapshot may be nil.
func (c *Config) ResolveToken(ctx context.Context, snapshot *cache.Snapshot, flow *auth.Flow) (*auth.Token, error) {
	if snapshot != nil && snapshot.Token != nil && snapshot.Token.AccessToken != "" {
		if !snapshot.Token.Expired() {
			log.Debug("Using cached session token")
			return snapshot.Token, nil
		}
		if snapshot.Token.RefreshToken != "" {
			log.Info("Cached token expired; refreshing...")
			token, err := flow.Refresh(ctx, snapshot.Token.RefreshToken)
			if err == nil {
				return token, nil
			}
			log.Warning("Token refresh failed: %s", err)
		}
	}

	if c.KeyringTokenName != "" {
		stored, err := c.LoadTokenFromKeyring()
		if err == nil {
			token := auth.ParseStored(stored)
			if !token.Expired() {
				log.Debug("Using keyring token '%s'", c.KeyringTokenName)
				return token, nil
			}
			if token.RefreshToken != "" {
				log.Info("Keyring token expired; refreshing...")
				if refreshed, err := flow.Refresh(ctx, token.RefreshToken); err == nil {
					return refreshed, nil
				}
			}
			log.Warning("Keyring token '%s' is expired", c.KeyringTokenName)
		} else if !errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, err
		}
	}

	if c.Email == "" {
		return nil, &api.AuthError{Message: "no usable credentials; provide -email to log in"}
	}
	return flow.Login(ctx)
}
