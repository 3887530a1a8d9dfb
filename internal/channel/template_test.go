package channel

import (
	"testing"

	"github.com/google/uuid"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"name": "Ana", "surveyTitle": "Suporte"}

	cases := []struct {
		in   string
		want string
	}{
		{"Olá {{name}}!", "Olá Ana!"},
		{"{{name}} - {{surveyTitle}}", "Ana - Suporte"},
		{"sem placeholders", "sem placeholders"},
		{"desconhecido: {{foo}}", "desconhecido: {{foo}}"},
		{"{{name}}{{name}}", "AnaAna"},
	}
	for _, tc := range cases {
		if got := Render(tc.in, vars); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestURLs(t *testing.T) {
	surveyID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	sendID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	got := SurveyURL("https://nps.example.com", surveyID, sendID)
	want := "https://nps.example.com/survey/11111111-2222-3333-4444-555555555555?sendId=aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	if got != want {
		t.Errorf("SurveyURL = %q, want %q", got, want)
	}

	got = UnsubscribeURL("https://nps.example.com", sendID)
	want = "https://nps.example.com/unsubscribe?sendId=aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	if got != want {
		t.Errorf("UnsubscribeURL = %q, want %q", got, want)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("+55 11 99999-8888")
	if err != nil {
		t.Fatalf("NormalizePhone: %v", err)
	}
	if got != "+5511999998888" {
		t.Errorf("normalized = %q", got)
	}

	// Numbers without a country code resolve against the default region.
	got, err = NormalizePhone("11 99999-8888")
	if err != nil {
		t.Fatalf("NormalizePhone: %v", err)
	}
	if got != "+5511999998888" {
		t.Errorf("normalized = %q", got)
	}

	if _, err := NormalizePhone("123"); err == nil {
		t.Error("invalid number accepted")
	}
}
