package thimbletest_test

import (
	"errors"
	"testing"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/thimbletest"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config `thimble:""`
}

type UserRepository interface {
	FindByID(id int) string
}

type MockUserRepository struct {
	FindByIDFn func(id int) string
}

func (m *MockUserRepository) FindByID(id int) string {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(id)
	}
	return ""
}

type Service struct {
	Repo UserRepository `thimble:""`
}

func TestNew(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	if h == nil {
		t.Fatal("New() returned nil")
	}
	if h.Injector() != h.Injector() {
		t.Error("expected the injector to be built once")
	}
}

func TestCleanupClosesInjector(t *testing.T) {
	t.Parallel()

	var inj *thimble.Injector
	t.Run(
		"inner", func(t *testing.T) {
			h := thimbletest.New(t)
			thimbletest.MustBindInstance(h, &Config{Port: 8080})
			thimbletest.MustGet[*Config](h)
			inj = h.Injector()
		},
	)

	_, err := thimble.Get[*Config](inj)
	if !thimble.IsContainerClosed(err) {
		t.Errorf("expected container closed error, got %v", err)
	}
}

func TestReplace(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindInstance(h, &Config{Port: 8080, Host: "localhost"})
	thimbletest.Replace(h, &Config{Port: 9090, Host: "testhost"})

	db := thimbletest.MustGet[*Database](h)
	if db.Config.Port != 9090 {
		t.Errorf("expected port 9090, got %d", db.Config.Port)
	}
	if db.Config.Host != "testhost" {
		t.Errorf("expected host testhost, got %s", db.Config.Host)
	}
}

func TestReplaceNamed(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindNamedInstance(h, "primary", &Config{Port: 5432})
	thimbletest.MustBindNamedInstance(h, "replica", &Config{Port: 5433})
	thimbletest.ReplaceNamed(h, "primary", &Config{Port: 9999})

	primary := thimbletest.MustGetNamed[*Config](h, "primary")
	if primary.Port != 9999 {
		t.Errorf("expected port 9999, got %d", primary.Port)
	}

	replica := thimbletest.MustGetNamed[*Config](h, "replica")
	if replica.Port != 5433 {
		t.Errorf("expected port 5433, got %d", replica.Port)
	}
}

func TestReplaceConstructor(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustProvide(h, func() *Config { return &Config{Port: 8080} })

	callCount := 0
	thimbletest.ReplaceConstructor[*Config](h, func() *Config {
		callCount++
		return &Config{Port: 3000}
	})

	cfg := thimbletest.MustGet[*Config](h)
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	thimbletest.MustGet[*Config](h)
	if callCount != 1 {
		t.Errorf("expected constructor to be called once, got %d", callCount)
	}
}

func TestAssertHas(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindInstance(h, &Config{Port: 8080})

	thimbletest.AssertHas[*Config](h)
	thimbletest.AssertHas[*Database](h)
}

func TestAssertHasNamed(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindNamedInstance(h, "myconfig", &Config{Port: 8080})

	thimbletest.AssertHasNamed[*Config](h, "myconfig")
}

func TestAssertNotHas(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.AssertNotHas[UserRepository](h)
}

func TestMustResolve(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindInstance(h, &Config{Port: 8080})

	g := thimbletest.MustResolve[*Database](h)
	if g.Size() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Size())
	}
	if h.Injector().Len() != 0 {
		t.Error("expected nothing to be instantiated")
	}
}

func TestMockInjection(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)

	mock := &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "mock-user"
		},
	}
	thimbletest.MustBindInstance[UserRepository](h, mock)

	svc := thimbletest.MustGet[*Service](h)
	if result := svc.Repo.FindByID(1); result != "mock-user" {
		t.Errorf("expected 'mock-user', got '%s'", result)
	}
}

func TestReplaceWithMock(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)

	realRepo := &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "real-user"
		},
	}
	thimbletest.MustBindInstance[UserRepository](h, realRepo)

	mockRepo := &MockUserRepository{
		FindByIDFn: func(id int) string {
			return "test-user-" + string(rune('0'+id))
		},
	}
	thimbletest.Replace[UserRepository](h, mockRepo)

	repo := thimbletest.MustGet[UserRepository](h)
	if result := repo.FindByID(5); result != "test-user-5" {
		t.Errorf("expected 'test-user-5', got '%s'", result)
	}
}

func TestConstructorReturningError(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	expectedErr := errors.New("initialization failed")
	thimbletest.MustProvide(h, func() (*Config, error) {
		return nil, expectedErr
	})

	_, err := thimble.Get[*Config](h.Injector())
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if !thimble.IsConstructionFailure(err) {
		t.Errorf("expected construction failure, got %v", err)
	}
}

func TestRequireClose(t *testing.T) {
	t.Parallel()

	h := thimbletest.New(t)
	thimbletest.MustBindInstance(h, &Config{Port: 8080})
	h.RequireBuild()
	h.RequireClose()

	if _, err := thimble.Get[*Config](h.Injector()); !thimble.IsContainerClosed(err) {
		t.Errorf("expected container closed error, got %v", err)
	}
}
