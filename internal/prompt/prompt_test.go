package prompt

import (
	"strings"
	"testing"

	"github.com/zulandar/atelier/internal/assemble"
)

func testBundle() assemble.Bundle {
	return assemble.Bundle{
		"project": map[string]interface{}{
			"name": "Checkout",
			"type": "Software",
		},
		"artifact": map[string]interface{}{
			"name":   "Payment Vision",
			"type":   "Vision Statement",
			"phase":  "Inception",
			"syntax": "markdown",
		},
		"is_update":    false,
		"user_message": "Focus on recurring billing",
	}
}

func TestRender_FirstDraft(t *testing.T) {
	out, err := Render(testBundle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		"Checkout, a Software project",
		"first draft of the **Vision Statement**",
		`"Payment Vision" (Inception phase)`,
		"in markdown",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Revise the existing") {
		t.Error("first draft prompt should not use revision wording")
	}
}

func TestRender_Update(t *testing.T) {
	bundle := testBundle()
	bundle["is_update"] = true

	out, err := Render(bundle)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Revise the existing **Vision Statement**") {
		t.Errorf("update prompt missing revision wording\n%s", out)
	}
	if !strings.Contains(out, "Preserve what works") {
		t.Error("update prompt missing revision rule")
	}
}

func TestRender_DependencySections(t *testing.T) {
	bundle := testBundle()
	bundle["vision_statement"] = "# Vision\nSell things."
	bundle["use_cases"] = []string{"# UC-1\nBuy item.", "# UC-2\nRefund item."}

	out, err := Render(bundle)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.Contains(out, "## Context: Vision Statement") {
		t.Errorf("missing singular dependency section\n%s", out)
	}
	if !strings.Contains(out, "## Context: Use Cases") {
		t.Errorf("missing repeatable dependency section\n%s", out)
	}
	for _, body := range []string{"Sell things.", "Buy item.", "Refund item."} {
		if !strings.Contains(out, body) {
			t.Errorf("missing dependency body %q", body)
		}
	}
	// Reserved keys never leak into dependency sections.
	if strings.Contains(out, "## Context: User Message") {
		t.Error("user_message rendered as a dependency section")
	}
}

func TestRender_NoSyntaxOmitsLine(t *testing.T) {
	bundle := testBundle()
	bundle["artifact"].(map[string]interface{})["syntax"] = ""

	out, err := Render(bundle)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, "Produce the artifact body in") {
		t.Errorf("syntax line rendered for empty syntax\n%s", out)
	}
}

func TestRender_NilBundle(t *testing.T) {
	if _, err := Render(nil); err == nil {
		t.Fatal("Render(nil) should fail")
	}
}

func TestSectionTitle(t *testing.T) {
	cases := map[string]string{
		"vision_statement": "Vision Statement",
		"use_cases":        "Use Cases",
		"c4_context":       "C4 Context",
		"adr":              "Adr",
	}
	for in, want := range cases {
		if got := sectionTitle(in); got != want {
			t.Errorf("sectionTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
