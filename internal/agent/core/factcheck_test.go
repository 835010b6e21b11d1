package core

import "testing"

func TestParseVerification(t *testing.T) {
	out := "STATUS: partially_true\nEXPLANATION: The number is close but overstated.\nCONFIDENCE: 0.75"
	v, ok := ParseVerification(out)
	if !ok {
		t.Fatalf("expected well-formed response to parse")
	}
	if v.Status != StatusPartiallyTrue {
		t.Fatalf("status = %q", v.Status)
	}
	if v.Explanation != "The number is close but overstated." {
		t.Fatalf("explanation = %q", v.Explanation)
	}
	if v.Confidence != 0.75 {
		t.Fatalf("confidence = %v", v.Confidence)
	}
}

func TestParseVerificationCaseInsensitivePrefixes(t *testing.T) {
	out := "status: verified\nexplanation: Matches the cited report.\nconfidence: 1"
	v, ok := ParseVerification(out)
	if !ok || v.Status != StatusVerified {
		t.Fatalf("expected lowercase prefixes to parse, got %+v ok=%v", v, ok)
	}
}

func TestParseVerificationRejectsFreeform(t *testing.T) {
	cases := []string{
		"The claim seems mostly true based on my knowledge.",
		"STATUS: probably\nEXPLANATION: not a known status\nCONFIDENCE: 0.5",
		"STATUS: verified\nCONFIDENCE: 0.9",
	}
	for _, c := range cases {
		if _, ok := ParseVerification(c); ok {
			t.Fatalf("expected parse failure for %q", c)
		}
	}
}

func TestCredibilityScoreMixedVerdicts(t *testing.T) {
	claims := []ClaimVerification{
		{Status: StatusVerified},
		{Status: StatusFalse},
	}
	if got := CredibilityScore(claims); got != 0.5 {
		t.Fatalf("credibility = %v, want 0.5", got)
	}
}

func TestCredibilityScoreRounding(t *testing.T) {
	claims := []ClaimVerification{
		{Status: StatusVerified},
		{Status: StatusVerified},
		{Status: StatusUnverified},
	}
	// (1.0 + 1.0 + 0.5) / 3 = 0.8333..., rounded to 0.83
	if got := CredibilityScore(claims); got != 0.83 {
		t.Fatalf("credibility = %v, want 0.83", got)
	}
}

func TestCredibilityScoreEmpty(t *testing.T) {
	if got := CredibilityScore(nil); got != 0.5 {
		t.Fatalf("empty claims should score as unverified 0.5, got %v", got)
	}
}
