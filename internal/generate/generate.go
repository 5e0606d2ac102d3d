// internal/generate/generate.go
package generate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxDraws bounds how often the faker is asked for a fresh value before a
// numeric suffix is appended to force uniqueness.
const maxDraws = 64

// Generator hands out random test values. Names, company names and phone
// numbers are never handed out twice by the same generator.
type Generator struct {
	mu        sync.Mutex
	faker     *gofakeit.Faker
	names     map[string]struct{}
	companies map[string]struct{}
	phones    map[string]struct{}
	logger    *zap.Logger
}

// Default is the process-wide generator shared by every worker.
var Default = New(0, nil)

// New builds a generator. A zero seed seeds from a random source.
func New(seed uint64, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		names:     make(map[string]struct{}),
		companies: make(map[string]struct{}),
		phones:    make(map[string]struct{}),
		logger:    logger.Named("generate"),
	}
}

// unique draws from next until it yields a value not yet in seen, then records it.
// The caller must hold g.mu.
func (g *Generator) unique(seen map[string]struct{}, next func() string) string {
	v := next()
	for i := 1; ; i++ {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			return v
		}
		if i < maxDraws {
			v = next()
			continue
		}
		v = fmt.Sprintf("%s%d", next(), g.faker.Number(10, 99999))
	}
}

// Name returns a first name no other caller has received.
func (g *Generator) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := g.unique(g.names, g.faker.FirstName)
	g.logger.Debug("Generated unique name.", zap.String("name", name))
	return name
}

// CompanyName returns a unique company name with "and" rewritten to "Alias" and
// "LLC" to "Organization", so it passes form validation.
func (g *Generator) CompanyName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw := g.unique(g.companies, g.faker.Company)
	name := strings.ReplaceAll(strings.ReplaceAll(raw, "and", "Alias"), "LLC", "Organization")
	g.logger.Debug("Generated unique company name.", zap.String("name", name))
	return name
}

// PhoneNumber returns a unique ten digit number starting with 6 to 9.
func (g *Generator) PhoneNumber() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	phone := g.unique(g.phones, func() string {
		return fmt.Sprintf("%d%09d", g.faker.IntRange(6, 9), g.faker.IntRange(0, 999_999_999))
	})
	g.logger.Debug("Generated unique phone number.", zap.String("phone", phone))
	return phone
}

// RandomString returns the first segment of a random UUID.
func (g *Generator) RandomString() string {
	s, _, _ := strings.Cut(uuid.NewString(), "-")
	return s
}

// RandomNumber returns an int in [min, max]. The bounds may be given in either order.
func (g *Generator) RandomNumber(min, max int) int {
	if min > max {
		min, max = max, min
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.faker.IntRange(min, max)
}
