package feed

import (
	"testing"
	"time"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/profile"
)

func filterAuthors() map[string]*profile.Author {
	return map[string]*profile.Author{
		"seeker": {
			ID:          "seeker",
			DisplayName: "Jane Dev",
			Headline:    "Senior Go Engineer",
			Location:    "Berlin, Germany",
			Skills:      []string{"Go", "PostgreSQL"},
			Role:        profile.RoleSeeker,
		},
		"recruiter": {
			ID:          "recruiter",
			DisplayName: "Acme Talent",
			CompanyName: "Acme Robotics",
			Location:    "Remote (Europe)",
			Role:        profile.RoleRecruiter,
		},
	}
}

func TestFilter_QueryMatchesAuthorFields(t *testing.T) {
	authors := filterAuthors()
	pool := []*content.Item{
		approvedItem("c1", "seeker", content.KindIntroduction, time.Hour),
		approvedItem("c2", "recruiter", content.KindJobOpening, time.Hour),
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"postgresql", []string{"c1"}}, // author skill
		{"acme", []string{"c2"}},       // company name
		{"GO ENGINEER", []string{"c1"}},
		{"nosuchthing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			kept := Filter(pool, authors, tt.query, Filters{})
			if len(kept) != len(tt.want) {
				t.Fatalf("query %q kept %d items, want %d", tt.query, len(kept), len(tt.want))
			}
			for i, id := range tt.want {
				if kept[i].ID != id {
					t.Errorf("query %q kept %q at %d, want %q", tt.query, kept[i].ID, i, id)
				}
			}
		})
	}
}

func TestFilter_AuthorRole(t *testing.T) {
	authors := filterAuthors()
	pool := []*content.Item{
		approvedItem("c1", "seeker", content.KindIntroduction, time.Hour),
		approvedItem("c2", "recruiter", content.KindJobOpening, time.Hour),
		approvedItem("c3", "unknown-author", content.KindTip, time.Hour),
	}

	kept := Filter(pool, authors, "", Filters{AuthorRoles: []profile.Role{profile.RoleRecruiter}})

	if len(kept) != 1 || kept[0].ID != "c2" {
		t.Errorf("expected only recruiter content, got %v", itemIDs(kept))
	}
}

func TestFilter_LocationRemoteAlwaysPasses(t *testing.T) {
	authors := filterAuthors()
	pool := []*content.Item{
		approvedItem("berlin", "seeker", content.KindIntroduction, time.Hour),
		approvedItem("remote", "recruiter", content.KindJobOpening, time.Hour),
	}

	kept := Filter(pool, authors, "", Filters{Location: "Lisbon"})
	if len(kept) != 1 || kept[0].ID != "remote" {
		t.Errorf("expected remote author to pass any location filter, got %v", itemIDs(kept))
	}

	kept = Filter(pool, authors, "", Filters{Location: "berlin"})
	if len(kept) != 2 {
		t.Errorf("expected both berlin and remote to pass, got %v", itemIDs(kept))
	}
}

func TestFilter_SkillOverlapBothDirections(t *testing.T) {
	authors := filterAuthors()
	item := approvedItem("c1", "seeker", content.KindIntroduction, time.Hour)
	item.Tags = []string{"golang"}
	pool := []*content.Item{item}

	// Requested skill contained by tag.
	if kept := Filter(pool, authors, "", Filters{Skills: []string{"Go"}}); len(kept) != 1 {
		t.Error("expected 'Go' to overlap tag 'golang'")
	}
	// Tag contained by requested skill.
	if kept := Filter(pool, authors, "", Filters{Skills: []string{"golang developer"}}); len(kept) != 1 {
		t.Error("expected 'golang developer' to overlap tag 'golang'")
	}
	if kept := Filter(pool, authors, "", Filters{Skills: []string{"java"}}); len(kept) != 0 {
		t.Error("expected no overlap for 'java'")
	}
}

func TestFilter_MissingAuthorFailsAuthorFilters(t *testing.T) {
	pool := []*content.Item{approvedItem("c1", "ghost", content.KindTip, time.Hour)}

	if kept := Filter(pool, nil, "", Filters{Location: "anywhere"}); len(kept) != 0 {
		t.Error("location filter must drop items with no author record")
	}
	if kept := Filter(pool, nil, "", Filters{}); len(kept) != 1 {
		t.Error("unfiltered items with no author record must survive")
	}
}

func TestFilters_Empty(t *testing.T) {
	if !(Filters{}).Empty() {
		t.Error("zero filters must be empty")
	}
	if (Filters{Location: "x"}).Empty() {
		t.Error("location filter must not be empty")
	}
}

func itemIDs(items []*content.Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
