package server

import (
	"strings"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_register",
		"image_release",
		"image_load",
		"editor_open",
		"editor_save",
		"editor_close",
		"editor_crop",
		"editor_resize",
		"editor_set_dimensions",
		"editor_rotate",
		"editor_flip",
		"editor_undo",
		"editor_history",
		"editor_sample_color",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(tools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name is empty")
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema missing 'properties' field")
			}

			// Every required parameter must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %s has no property", r)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredSessionID(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		if tool.Name == "editor_open" || !strings.HasPrefix(tool.Name, "editor_") {
			continue
		}
		t.Run(tool.Name, func(t *testing.T) {
			requiredList, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}

			hasSession := false
			for _, r := range requiredList {
				if r == "session_id" {
					hasSession = true
					break
				}
			}
			if !hasSession {
				t.Error("Tool should require 'session_id' parameter")
			}
		})
	}
}

func TestToolDefinitions_Enums(t *testing.T) {
	tests := []struct {
		tool  string
		prop  string
		enums []string
	}{
		{"editor_flip", "direction", []string{"horizontal", "vertical"}},
		{"editor_crop", "unit", []string{"px", "percent"}},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			props := toolMap[tt.tool].InputSchema["properties"].(map[string]interface{})
			prop, ok := props[tt.prop].(map[string]interface{})
			if !ok {
				t.Fatalf("%s has no %s property", tt.tool, tt.prop)
			}
			got, ok := prop["enum"].([]string)
			if !ok {
				t.Fatal("enum should be a string slice")
			}
			if len(got) != len(tt.enums) {
				t.Fatalf("enum: got %v, want %v", got, tt.enums)
			}
			for i := range got {
				if got[i] != tt.enums[i] {
					t.Errorf("enum[%d]: got %s, want %s", i, got[i], tt.enums[i])
				}
			}
		})
	}
}
