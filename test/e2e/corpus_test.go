package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_Consistency(t *testing.T) {
	c := BuildCorpus()
	if len(c.Records) == 0 {
		t.Fatal("corpus has no records")
	}
	if len(c.TestCases) == 0 {
		t.Fatal("corpus has no query test cases")
	}

	ids := make(map[string]bool, len(c.Records))
	for _, rec := range c.Records {
		if rec.ID == "" || rec.Query == "" || rec.Description == "" {
			t.Errorf("incomplete record: %+v", rec)
		}
		if ids[rec.ID] {
			t.Errorf("duplicate record id %s", rec.ID)
		}
		ids[rec.ID] = true
	}

	for _, tc := range c.TestCases {
		for _, id := range tc.ExpectedDocIDs {
			if !ids[id] {
				t.Errorf("test case %q expects unknown doc id %s", tc.Query, id)
			}
		}
	}
}

func TestBuildCorpus_TablesExistInFixtureSchema(t *testing.T) {
	known := make(map[string]bool)
	for _, row := range SchemaRows()[1:] {
		known[row[0]] = true
	}
	for _, rec := range BuildCorpus().Records {
		for _, table := range rec.TablesUsed {
			if !known[strings.ToLower(table)] {
				t.Errorf("record %s references table %s not in fixture schema", rec.ID, table)
			}
		}
	}
}
