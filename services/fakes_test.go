package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"farmsetu/models"
	"farmsetu/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memListings struct {
	mu       sync.Mutex
	items    []models.Listing
	clock    time.Time
	hideOnce bool // first title lookup misses, as when a concurrent insert lands in between
}

func (m *memListings) FindByOwnerTitle(_ context.Context, owner primitive.ObjectID, title string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideOnce {
		m.hideOnce = false
		return nil, nil
	}
	for _, l := range m.items {
		if l.CreatedBy == owner && strings.EqualFold(l.Title, strings.TrimSpace(title)) {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (m *memListings) Insert(_ context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.TitleKey(l.Title)
	for _, existing := range m.items {
		if existing.CreatedBy == l.CreatedBy && existing.TitleKey == key {
			return repository.ErrDuplicateTitle
		}
	}
	m.clock = m.clock.Add(time.Second)
	l.ID = primitive.NewObjectID()
	l.TitleKey = key
	l.CreatedAt, l.UpdatedAt = m.clock, m.clock
	m.items = append(m.items, *l)
	return nil
}

func (m *memListings) FindVisible(_ context.Context, district string) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Listing
	for _, l := range m.items {
		if l.VisibleTo(district) {
			out = append(out, l)
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *memListings) FindByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Listing
	for _, l := range m.items {
		if l.CreatedBy == owner {
			out = append(out, l)
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *memListings) UpdateStatus(_ context.Context, id, owner primitive.ObjectID, status models.ListingStatus) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].CreatedBy == owner {
			m.items[i].Status = status
			l := m.items[i]
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func newestFirst(ls []models.Listing) {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].CreatedAt.After(ls[j].CreatedAt) })
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]*models.User{}}
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.PhoneNumber == phone })
}

func (m *memUsers) FindByEmailOrPhone(_ context.Context, email, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email || u.PhoneNumber == phone })
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) UpdateFields(_ context.Context, id primitive.ObjectID, fields map[string]any) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyUserFields(u, fields)
	cp := *u
	return &cp, nil
}

func applyUserFields(u *models.User, fields map[string]any) {
	for path, v := range fields {
		s := v.(string)
		switch path {
		case "firstName":
			u.FirstName = s
		case "lastName":
			u.LastName = s
		case "pincode":
			u.Pincode = s
		case "address.state":
			u.Address.State = s
		case "address.district":
			u.Address.District = s
		case "address.taluko":
			u.Address.Taluko = s
		case "address.villageName":
			u.Address.VillageName = s
		}
	}
}
