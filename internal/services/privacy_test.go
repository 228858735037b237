package services

import "testing"

func TestPrescreenFindings(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "clean_feedback",
			text: "The student handled a deteriorating patient calmly and escalated appropriately.",
			want: nil,
		},
		{
			name: "email",
			text: "reach me at jane@example.com",
			want: []string{"email address"},
		},
		{
			name: "phone",
			text: "call 604-555-1234 for details",
			want: []string{"phone number"},
		},
		{
			name: "mrn",
			text: "the patient with MRN 4432871",
			want: []string{"medical record or chart number"},
		},
		{
			name: "bare_long_digits",
			text: "chart 9982311 showed the order",
			want: []string{"medical record or chart number"},
		},
		{
			name: "room_number",
			text: "the patient in room 12B",
			want: []string{"room or bed number"},
		},
		{
			name: "calendar_date",
			text: "on Jan 14 the student missed a check",
			want: []string{"specific calendar date"},
		},
		{
			name: "iso_date",
			text: "the incident on 2026-03-02",
			want: []string{"specific calendar date"},
		},
		{
			name: "relative_dates_ok",
			text: "earlier this week the student improved a lot",
			want: nil,
		},
		{
			name: "multiple_findings",
			text: "email nurse@hospital.org about the patient in bed 3",
			want: []string{"email address", "room or bed number"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PrescreenFindings(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("PrescreenFindings(%q) = %v, want %v", tc.text, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("PrescreenFindings(%q) = %v, want %v", tc.text, got, tc.want)
				}
			}
		})
	}
}

func TestExtractEmail(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "bare_address", text: "jane@health.ca", want: "jane@health.ca"},
		{name: "in_sentence", text: "send it to jane.doe@fraserhealth.ca please", want: "jane.doe@fraserhealth.ca"},
		{name: "trailing_period", text: "it's jane@health.ca.", want: "jane@health.ca"},
		{name: "no_address", text: "I'd rather not say", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractEmail(tc.text); got != tc.want {
				t.Fatalf("extractEmail(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
