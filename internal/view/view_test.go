package view

import (
	"testing"
	"time"

	"github.com/justyntemme/shelf/internal/catalog"
)

// Wednesday 2024-06-12 15:30 UTC.
var fixedNow = time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

func testView() *View {
	return New(Config{
		WeekStart: time.Monday,
		Location:  time.UTC,
		Clock:     ClockFunc(func() time.Time { return fixedNow }),
	})
}

func entry(name string, created time.Time, size int64) catalog.Entry {
	return catalog.Entry{
		Path:      "/photos/" + name,
		Name:      name,
		SizeBytes: size,
		SizeKnown: size >= 0,
		CreatedAt: created,
		Category:  catalog.CategoryOf(name),
	}
}

func testCatalog() *catalog.Catalog {
	entries := []catalog.Entry{
		entry("Photo_20240612_090000.jpg", fixedNow.Add(-6*time.Hour), 100),
		entry("Screenshot_20240612_101500.png", fixedNow.Add(-5*time.Hour), 200),
		entry("Photo_20240611_200000.jpg", fixedNow.Add(-20*time.Hour), 300),
		entry("Screenshot_20240610_080000.png", time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), 400),
		entry("Photo_20240609_120000.jpg", time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC), 500),
		entry("undated.jpg", time.Time{}, -1),
		entry("notes.txt", fixedNow.Add(-time.Hour), 7),
	}
	return &catalog.Catalog{Root: "/photos", Entries: entries, Status: catalog.StatusOK}
}

func names(r Result) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Name
	}
	return out
}

func sameNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestApplyFilter(t *testing.T) {
	testCases := []struct {
		name      string
		filter    Filter
		want      []string
		wantBytes int64
	}{
		{
			name:      "screenshots",
			filter:    Screenshots(),
			want:      []string{"Screenshot_20240612_101500.png", "Screenshot_20240610_080000.png"},
			wantBytes: 600,
		},
		{
			name:   "photos",
			filter: Photos(),
			want: []string{
				"Photo_20240612_090000.jpg",
				"Photo_20240611_200000.jpg",
				"Photo_20240609_120000.jpg",
				"undated.jpg",
			},
			wantBytes: 900,
		},
		{
			name:   "today",
			filter: Today(),
			want: []string{
				"Photo_20240612_090000.jpg",
				"Screenshot_20240612_101500.png",
				"notes.txt",
			},
			wantBytes: 307,
		},
		{
			name:      "yesterday",
			filter:    Yesterday(),
			want:      []string{"Photo_20240611_200000.jpg"},
			wantBytes: 300,
		},
		{
			name:   "this week from monday",
			filter: ThisWeek(),
			want: []string{
				"Photo_20240612_090000.jpg",
				"Screenshot_20240612_101500.png",
				"Photo_20240611_200000.jpg",
				"Screenshot_20240610_080000.png",
				"notes.txt",
			},
			wantBytes: 1007,
		},
		{
			name:      "category",
			filter:    InCategory(catalog.CategoryDocument),
			want:      []string{"notes.txt"},
			wantBytes: 7,
		},
		{
			name:      "combined",
			filter:    All(Screenshots(), Today()),
			want:      []string{"Screenshot_20240612_101500.png"},
			wantBytes: 200,
		},
		{
			name:      "unknown size excluded from bytes",
			filter:    Func("undated", func(e catalog.Entry) bool { return e.Name == "undated.jpg" }),
			want:      []string{"undated.jpg"},
			wantBytes: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := testView()
			v.SetCatalog(testCatalog())
			res := v.ApplyFilter(tc.filter)

			if got := names(res); !sameNames(got, tc.want) {
				t.Errorf("entries = %v, want %v", got, tc.want)
			}
			if res.TotalCount != len(tc.want) {
				t.Errorf("TotalCount = %d, want %d", res.TotalCount, len(tc.want))
			}
			if res.TotalBytes != tc.wantBytes {
				t.Errorf("TotalBytes = %d, want %d", res.TotalBytes, tc.wantBytes)
			}
		})
	}
}

func TestToday_EmptyWhenNothingQualifies(t *testing.T) {
	v := New(Config{
		Location: time.UTC,
		Clock:    ClockFunc(func() time.Time { return fixedNow.AddDate(1, 0, 0) }),
	})
	v.SetCatalog(testCatalog())
	res := v.ApplyFilter(Today())
	if res.TotalCount != 0 || len(res.Entries) != 0 || res.TotalBytes != 0 {
		t.Errorf("expected empty result, got %d entries", res.TotalCount)
	}
}

func TestThisWeek_SundayStart(t *testing.T) {
	v := New(Config{
		WeekStart: time.Sunday,
		Location:  time.UTC,
		Clock:     ClockFunc(func() time.Time { return fixedNow }),
	})
	v.SetCatalog(testCatalog())
	res := v.ApplyFilter(All(ThisWeek(), InCategory(catalog.CategoryImage)))

	// Sunday 2024-06-09 is inside a Sunday-start week, outside a Monday one.
	found := false
	for _, e := range res.Entries {
		if e.Name == "Photo_20240609_120000.jpg" {
			found = true
		}
	}
	if !found {
		t.Error("Sunday entry should be included when the week starts on Sunday")
	}
	if res.TotalCount != 5 {
		t.Errorf("TotalCount = %d, want 5", res.TotalCount)
	}
}

func TestStartOfWeek(t *testing.T) {
	testCases := []struct {
		now       time.Time
		weekStart time.Weekday
		want      time.Time
	}{
		{fixedNow, time.Monday, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
		{fixedNow, time.Sunday, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Monday, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC), time.Monday, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range testCases {
		if got := StartOfWeek(tc.now, tc.weekStart); !got.Equal(tc.want) {
			t.Errorf("StartOfWeek(%v, %v) = %v, want %v", tc.now, tc.weekStart, got, tc.want)
		}
	}
}

func TestSetOrder(t *testing.T) {
	v := testView()
	v.SetCatalog(testCatalog())
	v.ApplyFilter(InCategory(catalog.CategoryImage))

	o := catalog.Order{Key: catalog.SortSize}
	res := v.SetOrder(&o)
	want := []string{
		"Photo_20240609_120000.jpg",
		"Screenshot_20240610_080000.png",
		"Photo_20240611_200000.jpg",
		"Screenshot_20240612_101500.png",
		"Photo_20240612_090000.jpg",
		"undated.jpg",
	}
	if got := names(res); !sameNames(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if res.Order != "size:desc" {
		t.Errorf("Order = %q", res.Order)
	}
}

func TestProjectionDoesNotMutateCatalog(t *testing.T) {
	cat := testCatalog()
	first := cat.Entries[0].Name

	v := testView()
	v.SetCatalog(cat)
	o := catalog.ByName
	v.SetOrder(&o)

	if cat.Entries[0].Name != first {
		t.Error("sorting the view reordered the catalog")
	}
}

func TestNilCatalog(t *testing.T) {
	res := testView().ApplyFilter(Screenshots())
	if res.TotalCount != 0 || res.Entries != nil {
		t.Errorf("expected an empty result, got %+v", res)
	}
}

func TestNotAndAny(t *testing.T) {
	v := testView()
	v.SetCatalog(testCatalog())

	res := v.ApplyFilter(Not(InCategory(catalog.CategoryImage)))
	if got := names(res); !sameNames(got, []string{"notes.txt"}) {
		t.Errorf("Not: %v", got)
	}

	res = v.ApplyFilter(Any(Yesterday(), InCategory(catalog.CategoryDocument)))
	if got := names(res); !sameNames(got, []string{"Photo_20240611_200000.jpg", "notes.txt"}) {
		t.Errorf("Any: %v", got)
	}

	if res := v.ApplyFilter(Any()); res.TotalCount != 0 {
		t.Errorf("Any() should match nothing, got %d", res.TotalCount)
	}
}
