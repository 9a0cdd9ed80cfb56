package templates

import (
	"strings"
	"testing"
)

func TestTelegramTemplate_Welcome(t *testing.T) {
	registry := Get()

	output, err := registry.Render("telegram/welcome", map[string]interface{}{
		"FirstName": "Alice",
	})
	if err != nil {
		t.Fatalf("Failed to render welcome template: %v", err)
	}

	if !strings.Contains(output, "Alice") {
		t.Error("First name not injected")
	}
	for _, section := range []string{"/register", "/scoreboard", "/live", "/help"} {
		if !strings.Contains(output, section) {
			t.Errorf("Missing command mention: %s", section)
		}
	}
}

func TestTelegramTemplate_WelcomeWithoutName(t *testing.T) {
	registry := Get()

	output, err := registry.Render("telegram/welcome", map[string]interface{}{
		"FirstName": "",
	})
	if err != nil {
		t.Fatalf("Failed to render welcome template: %v", err)
	}

	if !strings.Contains(output, "Hey!") {
		t.Errorf("Expected bare greeting without a name, got: %s", output)
	}
}

func TestTelegramTemplate_Help(t *testing.T) {
	registry := Get()

	output, err := registry.Render("telegram/help", map[string]interface{}{
		"PollSeconds": 30,
	})
	if err != nil {
		t.Fatalf("Failed to render help template: %v", err)
	}

	commands := []string{
		"/register",
		"/leagues",
		"/setdefault",
		"/removeleague",
		"/findleague",
		"/scoreboard",
		"/standings",
		"/team",
		"/waivers",
		"/refresh",
		"/live",
	}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("Missing command in help: %s", cmd)
		}
	}

	if !strings.Contains(output, "30s") {
		t.Error("Poll interval not injected")
	}
}

func TestTelegramTemplate_Registered(t *testing.T) {
	registry := Get()

	output, err := registry.Render("telegram/registered", map[string]interface{}{
		"Name":      "The Gridiron Gang",
		"LeagueID":  int64(123456),
		"Season":    2025,
		"IsDefault": true,
	})
	if err != nil {
		t.Fatalf("Failed to render registered template: %v", err)
	}

	if !strings.Contains(output, "The Gridiron Gang") {
		t.Error("League name not injected")
	}
	if !strings.Contains(output, "123456") {
		t.Error("League ID not injected")
	}
	if !strings.Contains(output, "default league now") {
		t.Error("Default-league confirmation missing")
	}

	output, err = registry.Render("telegram/registered", map[string]interface{}{
		"Name":      "The Gridiron Gang",
		"LeagueID":  int64(123456),
		"Season":    2025,
		"IsDefault": false,
	})
	if err != nil {
		t.Fatalf("Failed to render registered template: %v", err)
	}

	if !strings.Contains(output, "/setdefault 123456") {
		t.Error("Set-default hint missing for non-default league")
	}
}

func TestTelegramTemplate_NotFound(t *testing.T) {
	registry := Get()

	_, err := registry.Render("telegram/nonexistent", nil)
	if err == nil {
		t.Error("Expected error for nonexistent template")
	}
}
