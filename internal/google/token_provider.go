package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// DefaultTokenFile is where the authorized user token is stored.
const DefaultTokenFile = "token.json"

// ErrNoToken is returned when no OAuth token has been stored yet.
var ErrNoToken = errors.New("no Google OAuth token found; sign in via /auth/login or `mahakaal login`")

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
type TokenProvider interface {
	// Token returns the stored token, or ErrNoToken.
	Token(ctx context.Context) (*oauth2.Token, error)

	// HasToken reports whether a usable token is stored.
	HasToken() bool
}

// FileTokenProvider stores a single token as JSON on disk.
type FileTokenProvider struct {
	path string

	mu         sync.Mutex
	generation uint64
}

// NewFileTokenProvider creates a provider backed by path.
func NewFileTokenProvider(path string) *FileTokenProvider {
	if path == "" {
		path = DefaultTokenFile
	}
	return &FileTokenProvider{path: path}
}

// Path returns the token file location.
func (p *FileTokenProvider) Path() string {
	return p.path
}

// Token reads the token from disk.
func (p *FileTokenProvider) Token(_ context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *FileTokenProvider) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", p.path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

// Save writes the token with owner-only permissions.
func (p *FileTokenProvider) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("cannot save nil token")
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	if err := os.WriteFile(p.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	p.generation++
	return nil
}

// HasToken reports whether a token is stored that is either still valid or
// can be refreshed.
func (p *FileTokenProvider) HasToken() bool {
	tok, err := p.Token(context.Background())
	if err != nil {
		return false
	}
	return tok.Valid() || tok.RefreshToken != ""
}

func (p *FileTokenProvider) currentGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// fileTokenSource loads the token lazily so the server can start before the
// user has signed in, and persists refreshed tokens.
type fileTokenSource struct {
	ctx    context.Context
	config *oauth2.Config
	store  *FileTokenProvider

	mu         sync.Mutex
	base       oauth2.TokenSource
	generation uint64
	last       string
}

// NewTokenSource returns an oauth2.TokenSource over the token file.
func NewTokenSource(ctx context.Context, config *oauth2.Config, store *FileTokenProvider) oauth2.TokenSource {
	return &fileTokenSource{ctx: ctx, config: config, store: store}
}

func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reload after a new login replaced the file.
	if gen := s.store.currentGeneration(); s.base == nil || gen != s.generation {
		tok, err := s.store.Token(s.ctx)
		if err != nil {
			return nil, err
		}
		s.base = s.config.TokenSource(s.ctx, tok)
		s.generation = gen
		s.last = tok.AccessToken
	}

	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh Google token: %w", err)
	}

	if tok.AccessToken != s.last {
		if err := s.store.Save(tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
		s.generation = s.store.currentGeneration()
	}
	return tok, nil
}
