package llm

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment variable names consulted by the default resolver chain.
const (
	EnvAPIKey = "OPENAI_API_KEY"
	EnvModel  = "OPENAI_MODEL"
)

// DefaultModel is used when no resolver yields a model name.
const DefaultModel = "gpt-3.5-turbo"

// Resolver looks up a named setting. It returns ok=false when the source has
// no non-empty value for name.
type Resolver interface {
	Resolve(name string) (string, bool)
}

// StaticResolver serves explicitly configured values.
type StaticResolver map[string]string

// Resolve implements Resolver.
func (s StaticResolver) Resolve(name string) (string, bool) {
	v := strings.TrimSpace(s[name])
	return v, v != ""
}

// EnvResolver reads the process environment.
type EnvResolver struct{}

// Resolve implements Resolver.
func (EnvResolver) Resolve(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

// DotenvResolver reads a local dotenv file. The file is parsed lazily on the
// first lookup; a missing or unreadable file yields no values.
type DotenvResolver struct {
	path   string
	logger *zap.Logger

	once   sync.Once
	values map[string]string
}

// NewDotenvResolver creates a resolver for the dotenv file at path.
func NewDotenvResolver(path string, logger *zap.Logger) *DotenvResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DotenvResolver{path: path, logger: logger}
}

// Resolve implements Resolver.
func (d *DotenvResolver) Resolve(name string) (string, bool) {
	d.once.Do(d.load)
	v := strings.TrimSpace(d.values[name])
	return v, v != ""
}

func (d *DotenvResolver) load() {
	if d.path == "" {
		return
	}
	values, err := godotenv.Read(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warn("failed to read dotenv file", zap.String("path", d.path), zap.Error(err))
		}
		return
	}
	d.values = values
}

// Chain returns the first value produced by the resolvers, in order.
func Chain(name string, resolvers ...Resolver) (string, bool) {
	for _, r := range resolvers {
		if r == nil {
			continue
		}
		if v, ok := r.Resolve(name); ok {
			return v, true
		}
	}
	return "", false
}

// DefaultResolvers builds the standard lookup order: explicit values, then
// the process environment, then the dotenv file.
func DefaultResolvers(apiKey, model, dotenvPath string, logger *zap.Logger) []Resolver {
	return []Resolver{
		StaticResolver{EnvAPIKey: apiKey, EnvModel: model},
		EnvResolver{},
		NewDotenvResolver(dotenvPath, logger),
	}
}
