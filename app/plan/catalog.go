package plan

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrPlanNotFound = errors.New("plan not found")

type Plan struct {
	Code     string            `yaml:"code"`
	Titles   map[string]string `yaml:"titles"`
	Price    int64             `yaml:"price"`
	Currency string            `yaml:"currency"`
	Days     int               `yaml:"days"`
}

type Wallet struct {
	Label   string `yaml:"label"`
	Address string `yaml:"address"`
}

type Catalog struct {
	plans   map[string]Plan
	order   []string
	wallets []Wallet
}

type catalogFile struct {
	Plans   []Plan   `yaml:"plans"`
	Wallets []Wallet `yaml:"wallets"`
}

func DefaultCatalog() *Catalog {
	c, _ := NewCatalog([]Plan{
		{Code: "T1", Titles: map[string]string{"en": "Plan 1", "ru": "Тариф 1"}, Price: 10, Currency: "USDT", Days: 7},
		{Code: "T2", Titles: map[string]string{"en": "Plan 2", "ru": "Тариф 2"}, Price: 25, Currency: "USDT", Days: 30},
		{Code: "T3", Titles: map[string]string{"en": "Plan 3", "ru": "Тариф 3"}, Price: 70, Currency: "USDT", Days: 90},
	}, []Wallet{
		{Label: "USDT TRC20", Address: "TXXXXXXXXXXXX"},
		{Label: "BTC", Address: "bc1qXXXXXXXXX"},
	})
	return c
}

func NewCatalog(plans []Plan, wallets []Wallet) (*Catalog, error) {
	c := &Catalog{plans: make(map[string]Plan, len(plans)), wallets: wallets}
	for _, p := range plans {
		p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
		if p.Code == "" {
			return nil, errors.New("plan code is required")
		}
		if p.Days <= 0 {
			return nil, fmt.Errorf("plan %s: days must be > 0", p.Code)
		}
		if _, dup := c.plans[p.Code]; dup {
			return nil, fmt.Errorf("plan %s: duplicate code", p.Code)
		}
		if p.Currency == "" {
			p.Currency = "USDT"
		}
		c.plans[p.Code] = p
		c.order = append(c.order, p.Code)
	}
	return c, nil
}

// LoadCatalog reads plans and wallets from a YAML file. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", path, err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog %s has no plans", path)
	}

	return NewCatalog(file.Plans, file.Wallets)
}

func (c *Catalog) Get(code string) (Plan, error) {
	p, ok := c.plans[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.plans[code])
	}
	return out
}

func (c *Catalog) Wallets() []Wallet {
	out := make([]Wallet, len(c.wallets))
	copy(out, c.wallets)
	return out
}

// Title picks the title for locale, then English, then any title, then the code.
func (p Plan) Title(locale string) string {
	if t, ok := p.Titles[locale]; ok && t != "" {
		return t
	}
	if t, ok := p.Titles["en"]; ok && t != "" {
		return t
	}
	keys := make([]string, 0, len(p.Titles))
	for k := range p.Titles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p.Titles[k] != "" {
			return p.Titles[k]
		}
	}
	return p.Code
}
