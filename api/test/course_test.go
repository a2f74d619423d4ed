package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/learnhub/learnhub/core/course"
	"github.com/learnhub/learnhub/core/module"
)

type courseTest struct {
	*TestEnv
}

func (ct *courseTest) createCourseOK(t *testing.T, title string, price int) course.Course {
	t.Helper()

	cn := course.CourseNew{
		Title:    title,
		Subtitle: "A test course",
		Category: "Data Science",
		Price:    price,
	}

	w, err := ct.postJSON("/courses", cn)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create course: status code %s", w.Status)
	}

	var c course.Course
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("cannot unmarshal created course: %v", err)
	}

	return c
}

func (ct *courseTest) publishCourseOK(t *testing.T, courseID string) {
	t.Helper()

	up := map[string]any{"published": true}

	w, err := ct.putJSON("/courses/"+courseID, up)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't publish course: status code %s", w.Status)
	}
}

func (ct *courseTest) createModuleOK(t *testing.T, courseID string, title string, position int) module.Module {
	t.Helper()

	mn := module.ModuleNew{
		CourseID: courseID,
		Title:    title,
		Position: position,
	}

	w, err := ct.postJSON("/modules", mn)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create module: status code %s", w.Status)
	}

	var m module.Module
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("cannot unmarshal created module: %v", err)
	}

	return m
}

func TestCourseListing(t *testing.T) {
	env, err := NewTestEnv(t, "course_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ct := &courseTest{env}

	if err := env.Login(env.CreatorEmail, env.CreatorPass); err != nil {
		t.Fatal(err)
	}

	pub := ct.createCourseOK(t, "Published Course", 500)
	ct.publishCourseOK(t, pub.ID)

	draft := ct.createCourseOK(t, "Draft Course", 700)

	var owned []course.Course
	if err := env.getJSON("/courses/owned", http.StatusOK, &owned); err != nil {
		t.Fatal(err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 owned courses, got %d", len(owned))
	}

	if err := env.Logout(); err != nil {
		t.Fatal(err)
	}

	// The public catalog only carries published courses.
	var listed []course.Course
	if err := env.getJSON("/courses", http.StatusOK, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 published course, got %d", len(listed))
	}
	if listed[0].ID != pub.ID {
		t.Fatalf("expected course %s in the catalog, got %s", pub.ID, listed[0].ID)
	}

	if err := env.getJSON("/courses?search=draft", http.StatusOK, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Fatalf("draft course %s leaked into the catalog", draft.ID)
	}
}
