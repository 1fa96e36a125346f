package conversation

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input       string
		wantType    CommandType
		wantPayload string
	}{
		{"", CommandSay, ""},
		{"   ", CommandSay, ""},
		{"I have eggs and spinach", CommandSay, "I have eggs and spinach"},
		{"what can I make?", CommandSay, "what can I make?"},

		{"/quit", CommandQuit, ""},
		{"/EXIT", CommandQuit, ""},
		{"/q", CommandQuit, ""},
		{"/help", CommandHelp, ""},
		{"/?", CommandHelp, ""},
		{"/reset", CommandReset, ""},
		{"/recipes", CommandRecipes, ""},

		{"/cook", CommandCook, ""},
		{"/cook eggs, milk", CommandCook, "eggs, milk"},
		{"  /generate   rice  ", CommandCook, "rice"},
		{"/healthy low carb", CommandHealthy, "low carb"},
		{"/allergies peanuts", CommandAllergies, "peanuts"},

		// Unknown slash commands and lookalikes go to the assistant.
		{"/dance", CommandSay, "/dance"},
		{"/cooking tips", CommandSay, "/cooking tips"},
		{"cook eggs", CommandSay, "cook eggs"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCommand(tt.input)
			if got.Type != tt.wantType {
				t.Errorf("type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Payload != tt.wantPayload {
				t.Errorf("payload = %q, want %q", got.Payload, tt.wantPayload)
			}
		})
	}
}
