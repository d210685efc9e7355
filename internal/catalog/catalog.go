package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

//go:embed benefits.yaml
var defaultCatalog []byte

type fileEntry struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Category     string   `yaml:"category"`
	Priority     string   `yaml:"priority"`
	Description  string   `yaml:"description"`
	Requirements []string `yaml:"requirements"`
	Education    bool     `yaml:"education"`
	MaxAge       *int     `yaml:"max_age"`
	Eligibility  string   `yaml:"eligibility"`
}

type file struct {
	Benefits []fileEntry `yaml:"benefits"`
}

type entry struct {
	benefit domain.BenefitDescriptor
	maxAge  *int
	program cel.Program
}

// Catalog is the immutable benefit configuration. It is safe for concurrent use.
type Catalog struct {
	entries    []entry
	index      map[string]int
	vocabulary map[string]struct{}
}

// LoadDefault loads the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile loads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "read benefit catalog", err)
	}
	return Load(data)
}

// Load parses a YAML catalog and compiles its eligibility rules.
func Load(data []byte) (*Catalog, error) {
	var raw file
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "parse benefit catalog", err)
	}
	if len(raw.Benefits) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "parse benefit catalog", errors.New("catalog has no benefits"))
	}

	env, err := newEnv()
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "create eligibility env", err)
	}

	c := &Catalog{
		entries:    make([]entry, 0, len(raw.Benefits)),
		index:      make(map[string]int, len(raw.Benefits)),
		vocabulary: make(map[string]struct{}),
	}
	for i, item := range raw.Benefits {
		e, err := buildEntry(env, item)
		if err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, fmt.Sprintf("benefit #%d", i+1), err)
		}
		if _, dup := c.index[e.benefit.ID]; dup {
			return nil, domain.WrapError(domain.ErrConfiguration, "parse benefit catalog", fmt.Errorf("duplicate benefit id %q", e.benefit.ID))
		}
		c.index[e.benefit.ID] = len(c.entries)
		c.entries = append(c.entries, e)
		addWords(c.vocabulary, e.benefit.Name, e.benefit.Description)
		addWords(c.vocabulary, e.benefit.Requirements...)
	}
	return c, nil
}

func buildEntry(env *cel.Env, item fileEntry) (entry, error) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return entry{}, errors.New("id is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return entry{}, fmt.Errorf("%s: name is required", id)
	}
	category := domain.BenefitCategory(item.Category)
	if !category.Valid() {
		return entry{}, fmt.Errorf("%s: unknown category %q", id, item.Category)
	}
	priority := domain.Priority(item.Priority)
	if !priority.Valid() {
		return entry{}, fmt.Errorf("%s: unknown priority %q", id, item.Priority)
	}
	if item.MaxAge != nil && *item.MaxAge < 0 {
		return entry{}, fmt.Errorf("%s: max_age must be >= 0", id)
	}

	e := entry{
		benefit: domain.BenefitDescriptor{
			ID:           id,
			Name:         strings.TrimSpace(item.Name),
			Category:     category,
			Description:  strings.TrimSpace(item.Description),
			Requirements: append([]string(nil), item.Requirements...),
			Priority:     priority,
			Education:    item.Education,
		},
		maxAge: item.MaxAge,
	}
	if expr := strings.TrimSpace(item.Eligibility); expr != "" {
		prog, err := compileRule(env, expr)
		if err != nil {
			return entry{}, fmt.Errorf("%s: %w", id, err)
		}
		e.program = prog
	}
	return e, nil
}

// Entries returns every benefit in catalog order. Callers own the returned copies.
func (c *Catalog) Entries() []domain.BenefitDescriptor {
	out := make([]domain.BenefitDescriptor, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.benefit.Clone())
	}
	return out
}

func (c *Catalog) Get(id string) (domain.BenefitDescriptor, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.BenefitDescriptor{}, false
	}
	return c.entries[i].benefit.Clone(), true
}

// Eligible reports whether the benefit applies to the facts.
// Unknown benefits are not eligible; unknown facts never exclude.
func (c *Catalog) Eligible(benefit domain.BenefitDescriptor, facts domain.ReportFacts) bool {
	i, ok := c.index[benefit.ID]
	if !ok {
		return false
	}
	e := c.entries[i]
	if age, known := facts.KnownAge(); known && e.maxAge != nil && age > *e.maxAge {
		return false
	}
	if e.program == nil {
		return true
	}
	return evalRule(e.program, facts)
}

// Vocabulary returns the lower-cased words used by catalog text.
func (c *Catalog) Vocabulary() map[string]struct{} {
	out := make(map[string]struct{}, len(c.vocabulary))
	for w := range c.vocabulary {
		out[w] = struct{}{}
	}
	return out
}

func addWords(dst map[string]struct{}, texts ...string) {
	for _, text := range texts {
		for _, w := range strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len([]rune(w)) < 2 {
				continue
			}
			dst[strings.ToLower(w)] = struct{}{}
		}
	}
}
