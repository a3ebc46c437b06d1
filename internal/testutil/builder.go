package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// LedgerFixture is a seeded ledger with named handles to its rows.
type LedgerFixture struct {
	Ledger     *model.Ledger
	Owner      *model.User
	users      map[string]*model.User
	assets     map[string]*model.Asset
	categories map[string]*model.Category
	t          *testing.T
}

// User returns a seeded member by email or fails the test.
func (f *LedgerFixture) User(email string) *model.User {
	f.t.Helper()
	u, ok := f.users[email]
	if !ok {
		f.t.Fatalf("no seeded user %q", email)
	}
	return u
}

// Asset returns a seeded asset by name or fails the test.
func (f *LedgerFixture) Asset(name string) *model.Asset {
	f.t.Helper()
	a, ok := f.assets[name]
	if !ok {
		f.t.Fatalf("no seeded asset %q", name)
	}
	return a
}

// Category returns a seeded category by name or fails the test.
func (f *LedgerFixture) Category(name string) *model.Category {
	f.t.Helper()
	c, ok := f.categories[name]
	if !ok {
		f.t.Fatalf("no seeded category %q", name)
	}
	return c
}

type memberSeed struct {
	email string
	name  string
	role  model.Role
}

type assetSeed struct {
	name    string
	kind    model.AssetKind
	balance int64
}

type categorySeed struct {
	name   string
	parent string
	typ    model.CategoryType
}

// LedgerBuilder seeds a ledger through the storage layer.
type LedgerBuilder struct {
	store      service.Storage
	t          *testing.T
	ownerEmail string
	ownerName  string
	ledgerName string
	members    []memberSeed
	assets     []assetSeed
	categories []categorySeed
}

// NewLedgerBuilder starts a builder with an owner named Owner.
func NewLedgerBuilder(t *testing.T, store service.Storage) *LedgerBuilder {
	t.Helper()
	return &LedgerBuilder{
		store:      store,
		t:          t,
		ownerEmail: "owner@example.com",
		ownerName:  "Owner",
		ledgerName: "Household",
	}
}

// WithOwner sets the owning user.
func (b *LedgerBuilder) WithOwner(email, name string) *LedgerBuilder {
	b.ownerEmail, b.ownerName = email, name
	return b
}

// WithName sets the ledger name.
func (b *LedgerBuilder) WithName(name string) *LedgerBuilder {
	b.ledgerName = name
	return b
}

// WithMember adds another user with the given role.
func (b *LedgerBuilder) WithMember(email, name string, role model.Role) *LedgerBuilder {
	b.members = append(b.members, memberSeed{email: email, name: name, role: role})
	return b
}

// WithAsset adds an ungrouped asset with an initial balance.
func (b *LedgerBuilder) WithAsset(name string, kind model.AssetKind, balance int64) *LedgerBuilder {
	b.assets = append(b.assets, assetSeed{name: name, kind: kind, balance: balance})
	return b
}

// WithCategory adds a top-level category.
func (b *LedgerBuilder) WithCategory(name string, typ model.CategoryType) *LedgerBuilder {
	b.categories = append(b.categories, categorySeed{name: name, typ: typ})
	return b
}

// WithSubcategory adds a category under an earlier seeded parent.
func (b *LedgerBuilder) WithSubcategory(name, parent string, typ model.CategoryType) *LedgerBuilder {
	b.categories = append(b.categories, categorySeed{name: name, parent: parent, typ: typ})
	return b
}

// Build writes every seeded row and returns the fixture.
func (b *LedgerBuilder) Build() *LedgerFixture {
	b.t.Helper()
	ctx := context.Background()

	f := &LedgerFixture{
		users:      make(map[string]*model.User),
		assets:     make(map[string]*model.Asset),
		categories: make(map[string]*model.Category),
		t:          b.t,
	}

	owner := b.user(ctx, b.ownerEmail, b.ownerName)
	f.Owner = owner
	f.users[owner.Email] = owner

	f.Ledger = &model.Ledger{Name: b.ledgerName, CurrencyCode: "USD", MonthStartDay: 1, OwnerID: owner.ID}
	if err := b.store.CreateLedger(ctx, f.Ledger); err != nil {
		b.t.Fatalf("failed to seed ledger: %v", err)
	}
	b.member(ctx, f.Ledger.ID, owner.ID, model.RoleOwner)
	if err := b.store.SetMainLedger(ctx, owner.ID, f.Ledger.ID); err != nil {
		b.t.Fatalf("failed to set main ledger: %v", err)
	}

	for _, m := range b.members {
		u := b.user(ctx, m.email, m.name)
		b.member(ctx, f.Ledger.ID, u.ID, m.role)
		f.users[u.Email] = u
	}

	for _, a := range b.assets {
		asset := &model.Asset{
			LedgerID:          f.Ledger.ID,
			Name:              a.name,
			Kind:              a.kind,
			InitialBalance:    a.balance,
			IncludeInNetWorth: true,
		}
		if err := b.store.CreateAsset(ctx, asset); err != nil {
			b.t.Fatalf("failed to seed asset %q: %v", a.name, err)
		}
		f.assets[a.name] = asset
	}

	for _, c := range b.categories {
		category := &model.Category{LedgerID: f.Ledger.ID, Name: c.name, Type: c.typ}
		if c.parent != "" {
			category.ParentID = &f.Category(c.parent).ID
		}
		if err := b.store.CreateCategory(ctx, category); err != nil {
			b.t.Fatalf("failed to seed category %q: %v", c.name, err)
		}
		f.categories[c.name] = category
	}

	return f
}

func (b *LedgerBuilder) user(ctx context.Context, email, name string) *model.User {
	b.t.Helper()
	u, err := b.store.CreateUser(ctx, email, name)
	if err != nil {
		b.t.Fatalf("failed to seed user %q: %v", email, err)
	}
	return u
}

func (b *LedgerBuilder) member(ctx context.Context, ledgerID, userID int64, role model.Role) {
	b.t.Helper()
	if _, err := b.store.AddMember(ctx, ledgerID, userID, role); err != nil {
		b.t.Fatalf("failed to seed member: %v", err)
	}
}
