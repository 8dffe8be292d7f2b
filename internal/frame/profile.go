package frame

import (
	"fmt"
	"strings"
)

// Category groups device profiles by hardware class. Desktop profiles bypass
// device-frame chrome entirely and always fill the container.
type Category string

const (
	CategoryMobile  Category = "mobile"
	CategoryTablet  Category = "tablet"
	CategoryDesktop Category = "desktop"
)

// Profile is a static descriptor of a simulated screen. Profiles are loaded
// from a fixed catalog and never mutated at runtime.
type Profile struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Width    int      `json:"width" yaml:"width"`
	Height   int      `json:"height" yaml:"height"`
	Category Category `json:"category" yaml:"category"`
}

// BuiltinProfiles returns the default device catalog. Dimensions are CSS
// viewport pixels for the portrait orientation.
func BuiltinProfiles() []Profile {
	return []Profile{
		{ID: "iphone-se", Name: "iPhone SE", Width: 375, Height: 667, Category: CategoryMobile},
		{ID: "iphone-14", Name: "iPhone 14", Width: 390, Height: 844, Category: CategoryMobile},
		{ID: "iphone-14-pro-max", Name: "iPhone 14 Pro Max", Width: 430, Height: 932, Category: CategoryMobile},
		{ID: "pixel-7", Name: "Pixel 7", Width: 412, Height: 915, Category: CategoryMobile},
		{ID: "galaxy-s23", Name: "Galaxy S23", Width: 360, Height: 780, Category: CategoryMobile},
		{ID: "ipad-mini", Name: "iPad Mini", Width: 768, Height: 1024, Category: CategoryTablet},
		{ID: "ipad-pro-11", Name: "iPad Pro 11\"", Width: 834, Height: 1194, Category: CategoryTablet},
		{ID: "desktop", Name: "Desktop", Width: 1280, Height: 800, Category: CategoryDesktop},
	}
}

// Catalog is an ordered, immutable set of device profiles. Consumers may
// inject their own; the zero catalog is invalid.
type Catalog struct {
	profiles []Profile
	byID     map[string]Profile
}

// NewCatalog validates and indexes the given profiles, preserving order.
func NewCatalog(profiles []Profile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("device catalog is empty")
	}
	byID := make(map[string]Profile, len(profiles))
	ordered := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("device profile %q has no id", p.Name)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("device profile %q has non-positive dimensions %dx%d", id, p.Width, p.Height)
		}
		switch p.Category {
		case CategoryMobile, CategoryTablet, CategoryDesktop:
		default:
			return nil, fmt.Errorf("device profile %q has unknown category %q", id, p.Category)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate device profile id %q", id)
		}
		p.ID = id
		byID[id] = p
		ordered = append(ordered, p)
	}
	return &Catalog{profiles: ordered, byID: byID}, nil
}

// DefaultCatalog returns a catalog of the builtin profiles.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(BuiltinProfiles())
	if err != nil {
		panic(err) // builtin profiles are statically valid
	}
	return c
}

// Get looks up a profile by id.
func (c *Catalog) Get(id string) (Profile, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// First returns the catalog's first profile.
func (c *Catalog) First() Profile {
	return c.profiles[0]
}

// List returns the profiles in catalog order.
func (c *Catalog) List() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Next returns the profile following id in catalog order, wrapping around.
// Unknown ids map to the first profile.
func (c *Catalog) Next(id string) Profile {
	for i, p := range c.profiles {
		if p.ID == id {
			return c.profiles[(i+1)%len(c.profiles)]
		}
	}
	return c.profiles[0]
}
