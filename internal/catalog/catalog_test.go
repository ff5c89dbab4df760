package catalog

import "testing"

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(cat.All()); got != 11 {
		t.Errorf("catalog size = %d, want 11", got)
	}

	ns, ok := cat.Get("seoul_job")
	if !ok {
		t.Fatal("Get(seoul_job) not found")
	}
	if ns.City() != "서울특별시" || ns.Category() != "job" || !ns.RequiresRegion() {
		t.Errorf("seoul_job = %+v, want Seoul job namespace requiring a region", ns)
	}

	hc, ok := cat.Get("health_center")
	if !ok {
		t.Fatal("Get(health_center) not found")
	}
	if !hc.StrictRegion() {
		t.Error("health_center should be strict about region scope")
	}

	wo, ok := cat.Get("workout")
	if !ok {
		t.Fatal("Get(workout) not found")
	}
	if wo.RequiresRegion() {
		t.Error("workout should be region-agnostic")
	}
}

func TestCatalog_KeyFor(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		city, category string
		wantKey        string
		wantOK         bool
	}{
		{"서울특별시", "job", "seoul_job", true},
		{"경기도", "culture", "kk_culture", true},
		{"인천광역시", "facility", "ich_facility", true},
		{"서울특별시", "health", "health_center", true},
		{"부산광역시", "job", "", false},
		{"서울특별시", "", "", false},
		{"", "job", "", false},
	}
	for _, tt := range tests {
		ns, ok := cat.KeyFor(tt.city, tt.category)
		if ok != tt.wantOK {
			t.Errorf("KeyFor(%s, %s) ok = %v, want %v", tt.city, tt.category, ok, tt.wantOK)
			continue
		}
		if ok && ns.Key() != tt.wantKey {
			t.Errorf("KeyFor(%s, %s) = %q, want %q", tt.city, tt.category, ns.Key(), tt.wantKey)
		}
	}
}
