package snapshot_test

import "testing"

func TestSearchPosts(t *testing.T) {
	db := testDB(t)
	if err := db.Save(sampleGraph(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	hits, err := db.SearchPosts("vote", 10)
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits for 'vote'")
	}
	if hits[0].PostID != "1" || hits[0].Kind != "status" {
		t.Errorf("first hit = %+v", hits[0])
	}
}

func TestSearchPosts_NoMatch(t *testing.T) {
	db := testDB(t)
	_ = db.Save(sampleGraph(t))
	hits, err := db.SearchPosts("nonexistentterm", 10)
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}
