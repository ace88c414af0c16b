package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"farmsetu/apperr"
	"farmsetu/models"
	"farmsetu/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength  = 6
	defaultCountryCode = "+91"
)

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*models.User, error)
}

type AuthService struct {
	users  UserStore
	tokens *TokenIssuer
	log    *slog.Logger
	cost   int
}

func NewAuthService(users UserStore, tokens *TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
}

type RegisterInput struct {
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Email       string             `json:"email"`
	PhoneNumber string             `json:"phoneNumber"`
	CountryCode string             `json:"countryCode"`
	Address     models.UserAddress `json:"address"`
	Pincode     string             `json:"pincode"`
	Password    string             `json:"password"`
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.CountryCode = strings.TrimSpace(in.CountryCode)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Address.State = strings.TrimSpace(in.Address.State)
	in.Address.District = strings.TrimSpace(in.Address.District)
	in.Address.Taluko = strings.TrimSpace(in.Address.Taluko)
	in.Address.VillageName = strings.TrimSpace(in.Address.VillageName)
	if in.CountryCode == "" {
		in.CountryCode = defaultCountryCode
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.normalize()
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.PhoneNumber == "" ||
		in.Pincode == "" || in.Password == "" {
		return nil, apperr.Validation("Please provide all required fields")
	}
	a := in.Address
	if a.State == "" || a.District == "" || a.Taluko == "" || a.VillageName == "" {
		return nil, apperr.Validation("Please provide all address fields (state, district, taluko, villageName)")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, ".") {
		return nil, apperr.FieldValidation("Please provide a valid email address", "email", "")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.FieldValidation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength), "password", "")
	}

	existing, err := s.users.FindByEmailOrPhone(ctx, in.Email, in.PhoneNumber)
	switch {
	case err == nil && existing.Email == in.Email:
		return nil, apperr.FieldValidation("User already exists with this email", "email", "")
	case err == nil:
		return nil, apperr.FieldValidation("User already exists with this phone number", "phoneNumber", "")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("AuthService.Register: lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("AuthService.Register: hash password: %w", err)
	}
	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		CountryCode:  in.CountryCode,
		Address:      in.Address,
		Pincode:      in.Pincode,
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperr.Validation("User already exists with this email or phone number")
		}
		return nil, fmt.Errorf("AuthService.Register: %w", err)
	}

	s.log.Info("user registered", "userId", user.ID.Hex())
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, phone, password string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, apperr.Validation("Please provide phone number and password")
	}
	user, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("login failed: unknown phone")
		return nil, apperr.Auth("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("AuthService.Login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Info("login failed: wrong password", "userId", user.ID.Hex())
		return nil, apperr.Auth("Invalid credentials")
	}
	return s.session(user)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("Please provide both old password and new password")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.FieldValidation(
			fmt.Sprintf("New password must be at least %d characters long", minPasswordLength), "newPassword", "")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("AuthService.ChangePassword: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Auth("Old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("AuthService.ChangePassword: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("AuthService.ChangePassword: %w", err)
	}
	s.log.Info("password changed", "userId", userID.Hex())
	return nil
}

// ProfileInput is a partial profile update; nil fields are left alone.
type ProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Pincode   *string `json:"pincode"`
	Address   struct {
		State       *string `json:"state"`
		District    *string `json:"district"`
		Taluko      *string `json:"taluko"`
		VillageName *string `json:"villageName"`
	} `json:"address"`
}

// fields maps provided values to their document paths.
func (in ProfileInput) fields() (map[string]any, error) {
	out := map[string]any{}
	add := func(path, name string, v *string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return apperr.FieldValidation(name+" cannot be empty", name, "")
		}
		out[path] = trimmed
		return nil
	}
	for _, f := range []struct {
		path, name string
		v          *string
	}{
		{"firstName", "firstName", in.FirstName},
		{"lastName", "lastName", in.LastName},
		{"pincode", "pincode", in.Pincode},
		{"address.state", "state", in.Address.State},
		{"address.district", "district", in.Address.District},
		{"address.taluko", "taluko", in.Address.Taluko},
		{"address.villageName", "villageName", in.Address.VillageName},
	} {
		if err := add(f.path, f.name, f.v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateProfile applies in to the user's name, pincode and address. It
// reports whether anything was written.
func (s *AuthService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, bool, error) {
	fields, err := in.fields()
	if err != nil {
		return nil, false, err
	}

	var user *models.User
	if len(fields) == 0 {
		user, err = s.users.FindByID(ctx, userID)
	} else {
		user, err = s.users.UpdateFields(ctx, userID, fields)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("AuthService.UpdateProfile: %w", err)
	}
	if len(fields) > 0 {
		s.log.Info("profile updated", "userId", userID.Hex(), "fields", len(fields))
	}
	return user, len(fields) > 0, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Auth("Not authorized to access this route. Invalid token.")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Auth("Not authorized to access this route. Invalid token.")
	}
	user, err := s.users.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Auth("User not found with this token.")
	}
	if err != nil {
		return nil, fmt.Errorf("AuthService.Authenticate: %w", err)
	}
	return user, nil
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("AuthService: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}
