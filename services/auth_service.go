package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 7 * 24 * time.Hour

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Repos     repositories.Repos
	Tx        repositories.TxRunner
	Verifier  IdentityVerifier
	JWTSecret []byte
}

func NewAuthService(repos repositories.Repos, tx repositories.TxRunner, verifier IdentityVerifier, jwtSecret []byte) *AuthService {
	return &AuthService{Repos: repos, Tx: tx, Verifier: verifier, JWTSecret: jwtSecret}
}

type MeFamilyEntry struct {
	Family struct {
		Name       string `json:"name"`
		Identifier string `json:"identifier"`
	} `json:"family"`
	Role string `json:"role"` // "owner" | "member"
}

type MeSummary struct {
	User struct {
		Username     string `json:"username"`
		DisplayName  string `json:"display_name"`
		Role         string `json:"role"`
		Email        string `json:"email"`
		AuthProvider string `json:"auth_provider"`
	} `json:"user"`
	Families []MeFamilyEntry `json:"families"`
}

// Register creates a password account with an empty, well-formed profile.
func (s *AuthService) Register(username, displayName, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" {
		return models.User{}, fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	if displayName == "" {
		return models.User{}, fmt.Errorf("%w: display name required", ErrInvalidInput)
	}
	if len(displayName) > 100 {
		return models.User{}, fmt.Errorf("%w: display name must be at most 100 characters", ErrInvalidInput)
	}
	if len(password) < 8 || len(password) > 20 {
		return models.User{}, fmt.Errorf("%w: password must be 8-20 characters", ErrInvalidInput)
	}

	accountRole := models.RoleParent
	if strings.ToLower(strings.TrimSpace(role)) == models.RoleChild {
		accountRole = models.RoleChild
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:     username,
		DisplayName:  displayName,
		Password:     string(hashed),
		AuthProvider: "password",
		Role:         accountRole,
		ProfileData:  models.DefaultProfile().Encode(),
	}

	err = s.Tx.InTx(func(r repositories.Repos) error {
		taken, err := r.Users.ExistsUsername(username, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: username already exists", ErrConflict)
		}
		return r.Users.Save(user)
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login checks the password and issues a token.
func (s *AuthService) Login(username, password string) (models.User, string, error) {
	user, err := s.Repos.Users.FindByUsername(strings.TrimSpace(username))
	if err != nil {
		return models.User{}, "", fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return models.User{}, "", fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	token, err := s.issueToken(user)
	return user, token, err
}

// LoginGoogle signs a user in via a verified Google credential, provisioning
// an account on first contact. Brand-new Google users must state a preferred
// role first; until then ErrRoleRequired is returned.
func (s *AuthService) LoginGoogle(ctx context.Context, idToken, accessToken, preferredRole string) (models.User, string, error) {
	idToken = strings.TrimSpace(idToken)
	accessToken = strings.TrimSpace(accessToken)
	preferredRole = strings.ToLower(strings.TrimSpace(preferredRole))
	if preferredRole != models.RoleParent && preferredRole != models.RoleChild {
		preferredRole = ""
	}
	if idToken == "" && accessToken == "" {
		return models.User{}, "", fmt.Errorf("%w: id_token or access_token required", ErrInvalidInput)
	}

	var identity GoogleIdentity
	var err error
	if idToken != "" {
		identity, err = s.Verifier.VerifyIDToken(ctx, idToken)
	}
	if (idToken == "" || err != nil) && accessToken != "" {
		identity, err = s.Verifier.VerifyAccessToken(ctx, accessToken)
	}
	if err != nil {
		return models.User{}, "", err
	}
	if identity.Email == "" {
		return models.User{}, "", fmt.Errorf("%w: google account missing email", ErrInvalidInput)
	}

	localPart := identity.Email
	if at := strings.Index(identity.Email, "@"); at > 0 {
		localPart = identity.Email[:at]
	}
	displayName := cleanDisplayName(identity.Name, identity.GivenName, localPart)
	if displayName == "" {
		displayName = localPart
	}

	var user models.User
	err = s.Tx.InTx(func(r repositories.Repos) error {
		found, findErr := r.Users.FindByEmail(identity.Email)
		if findErr != nil {
			// legacy rows created with the email as the handle
			found, findErr = r.Users.FindByUsername(identity.Email)
			if findErr == nil {
				found.Email = identity.Email
			}
		}

		if findErr != nil {
			if preferredRole == "" {
				return fmt.Errorf("%w: select whether this google account should be parent or child", ErrRoleRequired)
			}
			found = models.User{
				Username:     uniqueUsername(r, displayName, 0),
				Email:        identity.Email,
				DisplayName:  displayName,
				Password:     randomPasswordHash(),
				AuthProvider: "google",
				Role:         preferredRole,
				ProfileData:  models.DefaultProfile().Encode(),
			}
		} else {
			if found.Email == "" {
				found.Email = identity.Email
			}
			if strings.EqualFold(strings.TrimSpace(found.Username), identity.Email) || strings.Contains(found.Username, "@") {
				found.Username = uniqueUsername(r, displayName, found.ID)
			}
		}
		found.DisplayName = displayName
		found.AuthProvider = "google"

		if err := r.Users.Save(found); err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return models.User{}, "", err
	}

	token, err := s.issueToken(user)
	return user, token, err
}

// UpdateCredentials changes the username and/or password after re-checking
// the current password. A username change cascades to families where the
// caller is master. A fresh token is issued for the new identity.
func (s *AuthService) UpdateCredentials(username, currentPassword, newUsername, newPassword, confirm string) (models.User, string, []string, error) {
	currentPassword = strings.TrimSpace(currentPassword)
	newUsername = strings.TrimSpace(newUsername)

	var user models.User
	var changed []string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		var err error
		user, err = r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if currentPassword == "" {
			return fmt.Errorf("%w: current password is required", ErrInvalidInput)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
			return fmt.Errorf("%w: incorrect password", ErrUnauthorized)
		}

		if newUsername != "" && newUsername != user.Username {
			if len(newUsername) > 100 {
				return fmt.Errorf("%w: username must be 1-100 characters", ErrInvalidInput)
			}
			taken, err := r.Users.ExistsUsername(newUsername, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: username is already taken", ErrConflict)
			}
			previous := user.Username
			user.Username = newUsername
			families, err := r.Families.FindByMaster(previous)
			if err != nil {
				return err
			}
			for _, family := range families {
				family.Master = newUsername
				if err := r.Families.Save(family); err != nil {
					return err
				}
			}
			changed = append(changed, "username")
		}

		if newPassword != "" {
			if confirm != "" && newPassword != confirm {
				return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
			}
			if len(newPassword) < 8 || len(newPassword) > 20 {
				return fmt.Errorf("%w: password must be 8-20 characters", ErrInvalidInput)
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user.Password = string(hashed)
			changed = append(changed, "password")
		}

		if len(changed) == 0 {
			return fmt.Errorf("%w: provide a new username and/or password to update", ErrInvalidInput)
		}
		return r.Users.Save(user)
	})
	if err != nil {
		return models.User{}, "", nil, err
	}

	token, err := s.issueToken(user)
	return user, token, changed, err
}

// SwitchGoogle repoints a google-provider account at a different Google
// identity after re-checking the local password.
func (s *AuthService) SwitchGoogle(ctx context.Context, username, currentPassword, idToken string) (models.User, string, error) {
	currentPassword = strings.TrimSpace(currentPassword)
	idToken = strings.TrimSpace(idToken)

	var user models.User
	err := s.Tx.InTx(func(r repositories.Repos) error {
		var err error
		user, err = r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if user.AuthProvider != "google" {
			return fmt.Errorf("%w: google sign-in is not linked to this account", ErrInvalidInput)
		}
		if currentPassword == "" {
			return fmt.Errorf("%w: current password is required", ErrInvalidInput)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
			return fmt.Errorf("%w: incorrect password", ErrUnauthorized)
		}
		if idToken == "" {
			return fmt.Errorf("%w: google id_token is required", ErrInvalidInput)
		}

		identity, err := s.Verifier.VerifyIDToken(ctx, idToken)
		if err != nil {
			return err
		}
		if identity.Email == "" {
			return fmt.Errorf("%w: google account is missing an email address", ErrInvalidInput)
		}
		if strings.EqualFold(user.Email, identity.Email) {
			return fmt.Errorf("%w: that google account is already linked", ErrInvalidInput)
		}
		if existing, err := r.Users.FindByEmail(identity.Email); err == nil && existing.ID != user.ID {
			return fmt.Errorf("%w: another account already uses that google email", ErrConflict)
		}

		user.Email = identity.Email
		return r.Users.Save(user)
	})
	if err != nil {
		return models.User{}, "", err
	}

	token, err := s.issueToken(user)
	return user, token, err
}

// Me returns the account summary plus the family entry, if any.
func (s *AuthService) Me(username string) (MeSummary, error) {
	user, err := s.Repos.Users.FindByUsername(username)
	if err != nil {
		return MeSummary{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	summary := MeSummary{Families: []MeFamilyEntry{}}
	summary.User.Username = user.Username
	summary.User.DisplayName = user.DisplayLabel()
	summary.User.Role = user.Role
	summary.User.Email = user.Email
	summary.User.AuthProvider = user.AuthProvider
	if summary.User.AuthProvider == "" {
		summary.User.AuthProvider = "password"
	}

	if user.FamilyID != "" {
		if family, err := s.Repos.Families.FindByFamilyID(user.FamilyID); err == nil {
			entry := MeFamilyEntry{Role: "member"}
			if family.Master == user.Username {
				entry.Role = "owner"
			}
			entry.Family.Name = family.Name
			entry.Family.Identifier = family.FamilyID
			summary.Families = append(summary.Families, entry)
		}
	}
	return summary, nil
}

func (s *AuthService) issueToken(user models.User) (string, error) {
	claims := &Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTSecret)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanDisplayName picks the first non-empty candidate, collapses runs of
// whitespace and caps the result at 80 characters.
func cleanDisplayName(candidates ...string) string {
	for _, raw := range candidates {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		name = whitespaceRun.ReplaceAllString(name, " ")
		if len(name) > 80 {
			name = name[:80]
		}
		return name
	}
	return ""
}

// uniqueUsername appends " 2", " 3", ... until the handle is free.
func uniqueUsername(r repositories.Repos, base string, excludeID uint) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "user"
	}
	candidate := base
	for counter := 2; ; counter++ {
		taken, err := r.Users.ExistsUsername(candidate, excludeID)
		if err != nil || !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", base, counter)
	}
}

// randomPasswordHash seeds Google-provisioned accounts with an unguessable
// local password so the password login path stays closed for them.
func randomPasswordHash() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hashed)
}
