// Package categories defines the fixed set of memory categories every agent
// carries, along with the bundled seed text for the persona categories.
package categories

import (
	"embed"
	"strings"
)

// Category is one entry of the fixed set.
type Category struct {
	Name        string
	Description string

	// LegacyFile is the Markdown file older installs kept in the agent
	// directory for this category, if any.
	LegacyFile string

	seed string
}

//go:embed seeds/*.md
var seeds embed.FS

// All is the fixed category set in canonical order. The first four mirror
// the agent's system prompt sections.
var All = []Category{
	{Name: "soul", Description: "persona and identity", LegacyFile: "SOUL.md", seed: "soul.md"},
	{Name: "user", Description: "owner and user information", LegacyFile: "USER.md", seed: "user.md"},
	{Name: "agents", Description: "agent instructions and behavior", LegacyFile: "AGENTS.md", seed: "agents.md"},
	{Name: "tools", Description: "tool usage", LegacyFile: "TOOLS.md", seed: "tools.md"},
	{Name: "personal_info", Description: "personal information about the user"},
	{Name: "preferences", Description: "likes, dislikes and preferences"},
	{Name: "relationships", Description: "people and relationships"},
	{Name: "activities", Description: "activities and actions"},
	{Name: "goals", Description: "goals and plans"},
	{Name: "experiences", Description: "experiences and events"},
	{Name: "knowledge", Description: "knowledge and skills"},
	{Name: "opinions", Description: "opinions and attitudes"},
	{Name: "habits", Description: "habits and routines"},
	{Name: "work_life", Description: "work and life"},
}

// Default is the category used when a caller names none.
const Default = "user"

var byName = func() map[string]Category {
	m := make(map[string]Category, len(All))
	for _, c := range All {
		m[c.Name] = c
	}
	return m
}()

// Lookup returns the category called name.
func Lookup(name string) (Category, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names returns the category names in canonical order.
func Names() []string {
	names := make([]string, len(All))
	for i, c := range All {
		names[i] = c.Name
	}
	return names
}

// Seed returns the bundled default summary for the category, or "" when it
// has none.
func (c Category) Seed() string {
	if c.seed == "" {
		return ""
	}
	data, err := seeds.ReadFile("seeds/" + c.seed)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
