package tenant

import "testing"

func TestPartitionKey(t *testing.T) {
	key, err := PartitionKey("clinic-1")
	if err != nil || key != "TENANT#clinic-1" {
		t.Fatalf("PartitionKey = %q, %v", key, err)
	}
	if _, err := PartitionKey(""); err == nil {
		t.Fatal("empty clinic ID must fail")
	}
}

func TestPartitionKeyFor(t *testing.T) {
	key, err := PartitionKeyFor("clinic-1", "PATIENT")
	if err != nil || key != "TENANT#clinic-1#PATIENT" {
		t.Fatalf("PartitionKeyFor = %q, %v", key, err)
	}
	key, err = PartitionKeyFor("clinic-1", "")
	if err != nil || key != "TENANT#clinic-1" {
		t.Fatalf("PartitionKeyFor with empty type = %q, %v", key, err)
	}
}

func TestClinicIDFromPartitionKey(t *testing.T) {
	cases := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{"TENANT#clinic-1", "clinic-1", false},
		{"TENANT#clinic-1#PATIENT", "clinic-1", false},
		{"TENANT#", "", true},
		{"USER#clinic-1", "", true},
		{"clinic-1", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ClinicIDFromPartitionKey(tc.key)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ClinicIDFromPartitionKey(%q) expected error", tc.key)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ClinicIDFromPartitionKey(%q) = %q, %v; want %q", tc.key, got, err, tc.want)
		}
	}
}

func TestValidateContext(t *testing.T) {
	if err := ValidateContext("clinic-1", "clinic-1"); err != nil {
		t.Errorf("matching clinics: %v", err)
	}
	if err := ValidateContext("clinic-1", "clinic-2"); err != ErrCrossTenant {
		t.Errorf("mismatch: err = %v, want ErrCrossTenant", err)
	}
	if err := ValidateContext("", "clinic-2"); err != ErrMissingContext {
		t.Errorf("missing context: err = %v, want ErrMissingContext", err)
	}
}
