package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestDateJSON(t *testing.T) {
	d := NewDate(1895, time.December, 28)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal date: %v", err)
	}
	if string(data) != `"1895-12-28"` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var decoded Date
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal date: %v", err)
	}
	if decoded != d {
		t.Fatalf("expected %v got %v", d, decoded)
	}

	data, err = json.Marshal(Date{})
	if err != nil {
		t.Fatalf("marshal zero date: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("expected null for zero date got %s", data)
	}

	if err := json.Unmarshal([]byte(`"28.12.1895"`), &decoded); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestFilmPatchStates(t *testing.T) {
	var patch FilmPatch
	body := `{"name":"Updated","description":null,"duration":90}`
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}

	if patch.ID.Set {
		t.Fatal("expected id to be absent")
	}
	if !patch.Description.Set || !patch.Description.Null {
		t.Fatalf("expected description to be an explicit null: %+v", patch.Description)
	}
	if _, ok := patch.ReleaseDate.Get(); ok {
		t.Fatal("expected release date to be absent")
	}

	film := Film{
		ID:          7,
		Name:        "Film",
		Description: "Description",
		ReleaseDate: NewDate(2000, time.January, 1),
		Duration:    60,
		Likes:       []int64{1, 2},
	}
	patch.Apply(&film)

	if film.Name != "Updated" || film.Duration != 90 {
		t.Fatalf("expected supplied fields to replace stored ones: %+v", film)
	}
	if film.Description != "" {
		t.Fatalf("expected explicit null to clear description got %q", film.Description)
	}
	if film.ReleaseDate != NewDate(2000, time.January, 1) {
		t.Fatalf("expected absent release date to stay unchanged got %v", film.ReleaseDate)
	}
	if film.ID != 7 || len(film.Likes) != 2 {
		t.Fatalf("expected id and likes to be untouched: %+v", film)
	}
}

func TestUserPatchApply(t *testing.T) {
	user := User{ID: 1, Email: "a@x", Login: "a", Name: "A", Birthday: NewDate(1990, time.May, 5)}

	UserPatch{
		Email:    Some("b@x"),
		Birthday: Null[Date](),
	}.Apply(&user)

	if user.Email != "b@x" {
		t.Fatalf("expected email to be replaced got %q", user.Email)
	}
	if !user.Birthday.IsZero() {
		t.Fatalf("expected birthday to be cleared got %v", user.Birthday)
	}
	if user.Login != "a" || user.Name != "A" {
		t.Fatalf("expected absent fields to be untouched: %+v", user)
	}
}
