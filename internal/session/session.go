package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elitcards/storefront/internal/hash"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/pocketbase"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrValidation = errors.New("validation")
)

// userRecord is the users auth collection shape on PocketBase.
type userRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Created string `json:"created"`
}

// Service manages the local user directory and the current-user singleton,
// authenticating remotely when the guard allows and falling back to the
// local directory otherwise. Local passwords are stored as bcrypt hashes;
// the remote store hashes its own copy server-side.
type Service struct {
	KV     *kvstore.Store
	Client *pocketbase.Client
	Policy *netpolicy.Policy
}

func New(kv *kvstore.Store, client *pocketbase.Client, policy *netpolicy.Policy) *Service {
	return &Service{KV: kv, Client: client, Policy: policy}
}

// Seed creates the demo directory when no users key exists yet.
func (s *Service) Seed() error {
	ok, err := s.KV.Has(kvstore.KeyUsers)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	seed := []struct {
		name, email, password, joined string
	}{
		{"John Doe", "john@example.com", "password123", "2023-01-15T12:00:00.000Z"},
		{"Jane Smith", "jane@example.com", "password123", "2023-02-20T14:30:00.000Z"},
	}
	users := make([]models.User, 0, len(seed))
	for _, u := range seed {
		h, err := hash.Password(u.password)
		if err != nil {
			return err
		}
		users = append(users, models.User{
			Name:         u.name,
			Email:        u.email,
			PasswordHash: h,
			JoinDate:     u.joined,
		})
	}
	return s.KV.Set(kvstore.KeyUsers, users)
}

// Users returns the local user directory. Missing or malformed storage
// yields the empty directory.
func (s *Service) Users() ([]models.User, error) {
	var users []models.User
	err := s.KV.Get(kvstore.KeyUsers, &users)
	switch {
	case err == nil:
		return users, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return []models.User{}, nil
	default:
		if err := s.KV.Set(kvstore.KeyUsers, []models.User{}); err != nil {
			return nil, err
		}
		return []models.User{}, nil
	}
}

// FindUser scans the local directory for a matching email and password.
func (s *Service) FindUser(email, password string) (*models.User, error) {
	users, err := s.Users()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email && hash.Check(users[i].PasswordHash, password) {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// UserExists checks the local directory by email only.
func (s *Service) UserExists(email string) (bool, error) {
	users, err := s.Users()
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// AddUser registers a new account. The remote write is best-effort
// enrichment: on success the remote id and creation timestamp are merged in,
// on guard block or failure a local timestamp is stamped instead. The local
// append happens regardless of the remote outcome.
func (s *Service) AddUser(ctx context.Context, name, email, password string) (*models.User, models.Source, error) {
	l := logging.FromContext(ctx).With("svc", "session.add_user")

	if name == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("name, email and password required: %w", ErrValidation)
	}

	pwHash, err := hash.Password(password)
	if err != nil {
		return nil, "", err
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
	}

	source := models.SourceLocal
	if s.Policy.AllowRemote(netpolicy.OpCreateUser) {
		raw, err := s.Client.Create(ctx, pocketbase.CollectionUsers, map[string]any{
			"name":            name,
			"email":           email,
			"password":        password,
			"passwordConfirm": password,
			"emailVisibility": true,
		})
		if err != nil {
			l.Warn("remote user create failed, local fallback", "error", err)
		} else {
			var rec userRecord
			if err := json.Unmarshal(raw, &rec); err == nil {
				user.RemoteID = rec.ID
				user.JoinDate = rec.Created
				source = models.SourceRemote
			}
		}
	} else {
		l.Warn("remote user create skipped", "reason", "mixed content guard")
	}
	if user.JoinDate == "" {
		user.JoinDate = time.Now().UTC().Format(time.RFC3339)
	}

	users, err := s.Users()
	if err != nil {
		return nil, "", err
	}
	users = append(users, user)
	if err := s.KV.Set(kvstore.KeyUsers, users); err != nil {
		return nil, "", err
	}
	return &user, source, nil
}

// Authenticate tries remote password auth first (guard permitting), builds a
// normalized session user and sets it current. On any failure it falls back
// to the local directory. ErrNotFound when both paths fail.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, models.Source, error) {
	l := logging.FromContext(ctx).With("svc", "session.authenticate")

	if s.Policy.AllowRemote(netpolicy.OpAuthUser) {
		res, err := s.Client.AuthWithPassword(ctx, pocketbase.CollectionUsers, email, password)
		if err != nil {
			l.Warn("remote auth failed, local fallback", "error", err)
		} else {
			var rec userRecord
			if err := json.Unmarshal(res.Record, &rec); err == nil && rec.ID != "" {
				user := models.User{
					RemoteID: rec.ID,
					Name:     rec.Name,
					Email:    rec.Email,
					JoinDate: rec.Created,
				}
				if err := s.SetCurrentUser(&user); err != nil {
					return nil, "", err
				}
				return &user, models.SourceRemote, nil
			}
		}
	} else {
		l.Warn("remote auth skipped", "reason", "mixed content guard")
	}

	user, err := s.FindUser(email, password)
	if err != nil {
		return nil, "", err
	}
	if err := s.SetCurrentUser(user); err != nil {
		return nil, "", err
	}
	return user, models.SourceLocal, nil
}

// CurrentUser returns the session singleton, or nil when logged out.
// Absence is authoritative over any stale cached fields.
func (s *Service) CurrentUser() (*models.User, error) {
	var user models.User
	err := s.KV.Get(kvstore.KeyCurrentUser, &user)
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return nil, nil
	default:
		// Malformed session record means logged out.
		if err := s.KV.Delete(kvstore.KeyCurrentUser); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// SetCurrentUser replaces the session singleton; nil removes it. The stored
// copy never carries the password hash.
func (s *Service) SetCurrentUser(user *models.User) error {
	if user == nil {
		return s.KV.Delete(kvstore.KeyCurrentUser)
	}
	stored := *user
	stored.PasswordHash = ""
	return s.KV.Set(kvstore.KeyCurrentUser, stored)
}
