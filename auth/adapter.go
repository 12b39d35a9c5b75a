// Package auth holds the authentication adapters: passive holders of the credentials
// taken from the configured sources. The policy of when and how to authenticate is
// up to the caller, see router/middleware.BasicAuth.
package auth

import (
	"bufio"
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/indigo-web/negotiator/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownAdapter = stderrors.New("auth: unknown adapter type")
	ErrNoFile         = stderrors.New("auth: credentials file is not specified")
	ErrNoRealm        = stderrors.New("auth: realm is not specified")
	ErrMalformedEntry = stderrors.New("auth: malformed credentials entry")
)

// Kind is the adapter variant.
type Kind uint8

const (
	Unknown Kind = iota
	// Htpasswd reads `user:hash` entries, as produced by the htpasswd utility.
	Htpasswd
	// Htdigest reads `user:realm:hash` entries, as produced by the htdigest utility.
	Htdigest
)

// String returns the type tag of the adapter.
func (k Kind) String() string {
	switch k {
	case Htpasswd:
		return "htpasswd"
	case Htdigest:
		return "htdigest"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String. Returns Unknown for unrecognized tags.
func ParseKind(tag string) Kind {
	switch strings.ToLower(tag) {
	case "htpasswd":
		return Htpasswd
	case "htdigest":
		return Htdigest
	default:
		return Unknown
	}
}

type (
	HtpasswdConfig struct {
		File string
	}

	HtdigestConfig struct {
		File  string
		Realm string
	}
)

// Adapter is a tagged union of the adapter variants. Only the config of the
// variant named by Kind is meaningful.
type Adapter struct {
	kind        Kind
	htpasswd    HtpasswdConfig
	htdigest    HtdigestConfig
	credentials map[string]string
}

func NewHtpasswd(cfg HtpasswdConfig) (*Adapter, error) {
	if len(cfg.File) == 0 {
		return nil, ErrNoFile
	}

	credentials, err := loadFile(cfg.File, func(line string) (user, hash string, ok bool) {
		fields := strings.SplitN(line, ":", 2)
		if len(fields) != 2 {
			return "", "", false
		}

		return fields[0], fields[1], true
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{
		kind:        Htpasswd,
		htpasswd:    cfg,
		credentials: credentials,
	}, nil
}

func NewHtdigest(cfg HtdigestConfig) (*Adapter, error) {
	switch {
	case len(cfg.File) == 0:
		return nil, ErrNoFile
	case len(cfg.Realm) == 0:
		return nil, ErrNoRealm
	}

	credentials, err := loadFile(cfg.File, func(line string) (user, hash string, ok bool) {
		fields := strings.Split(line, ":")
		if len(fields) != 3 {
			return "", "", false
		}

		if fields[1] != cfg.Realm {
			// entries of other realms are silently skipped
			return "", "", true
		}

		return fields[0], fields[2], true
	})
	if err != nil {
		return nil, err
	}

	return &Adapter{
		kind:        Htdigest,
		htdigest:    cfg,
		credentials: credentials,
	}, nil
}

// New constructs the adapter of the kind out of the generic options. Recognized
// options are `file` and `realm`.
func New(kind Kind, options map[string]string) (*Adapter, error) {
	switch kind {
	case Htpasswd:
		return NewHtpasswd(HtpasswdConfig{File: options["file"]})
	case Htdigest:
		return NewHtdigest(HtdigestConfig{File: options["file"], Realm: options["realm"]})
	default:
		return nil, ErrUnknownAdapter
	}
}

// FromConfig constructs all the configured adapters in their order.
func FromConfig(cfgs []config.AuthAdapter) ([]*Adapter, error) {
	adapters := make([]*Adapter, 0, len(cfgs))

	for _, cfg := range cfgs {
		adapter, err := New(ParseKind(cfg.Type), cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Type, err)
		}

		adapters = append(adapters, adapter)
	}

	return adapters, nil
}

func (a *Adapter) Kind() Kind {
	return a.kind
}

// Type returns the type tag of the adapter variant.
func (a *Adapter) Type() string {
	return a.kind.String()
}

// Realm returns the protection space name. Htpasswd adapters have none.
func (a *Adapter) Realm() string {
	if a.kind == Htdigest {
		return a.htdigest.Realm
	}

	return ""
}

// Credentials returns a copy of the loaded user to hash mapping.
func (a *Adapter) Credentials() map[string]string {
	return maps.Clone(a.credentials)
}

// Verify checks the password against the stored hash of the user.
func (a *Adapter) Verify(user, password string) bool {
	hash, found := a.credentials[user]
	if !found {
		return false
	}

	switch a.kind {
	case Htpasswd:
		return verifyHtpasswd(hash, password)
	case Htdigest:
		sum := md5.Sum([]byte(user + ":" + a.htdigest.Realm + ":" + password))
		return constEqual(hex.EncodeToString(sum[:]), hash)
	default:
		return false
	}
}

func verifyHtpasswd(hash, password string) bool {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	case strings.HasPrefix(hash, "{SHA}"):
		sum := sha1.Sum([]byte(password))
		return constEqual(base64.StdEncoding.EncodeToString(sum[:]), hash[len("{SHA}"):])
	case strings.HasPrefix(hash, "$"):
		// TODO: support $apr1$ (Apache MD5) and crypt(3) SHA hashes
		return false
	default:
		return constEqual(hash, password)
	}
}

func constEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type entryParser func(line string) (user, hash string, ok bool)

func loadFile(path string, parse entryParser) (map[string]string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	credentials := make(map[string]string)
	scanner := bufio.NewScanner(fd)

	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		user, hash, ok := parse(line)
		if !ok || (len(user) == 0) != (len(hash) == 0) {
			return nil, fmt.Errorf("%w: %s:%d", ErrMalformedEntry, path, lineno)
		}

		if len(user) > 0 {
			credentials[user] = hash
		}
	}

	return credentials, scanner.Err()
}
