package strutil

import "testing"

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"name", "name"},
		{"Name", "name"},
		{"firstName", "first_name"},
		{"FirstName", "first_name"},
		{"dateOfBirth", "date_of_birth"},

		// Acronyms
		{"HTTPServer", "http_server"},
		{"personID", "person_id"},
		{"parseXMLData", "parse_xml_data"},

		{"already_snake", "already_snake"},
		{"line2", "line2"},
		{"Address2Line", "address2_line"},
		{"first-name", "first_name"},
		{"first name", "first_name"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToSnakeCase(tt.input); got != tt.want {
				t.Errorf("ToSnakeCase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"person", "Person"},
		{"first_name", "FirstName"},
		{"first-name", "FirstName"},
		{"first name", "FirstName"},
		{"a_b", "AB"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToPascalCase(tt.input); got != tt.want {
				t.Errorf("ToPascalCase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToCamelCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"Person", "person"},
		{"first_name", "firstName"},
		{"date-of-birth", "dateOfBirth"},
		// No delimiters: only the first rune changes case after lowering.
		{"FirstName", "firstname"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToCamelCase(tt.input); got != tt.want {
				t.Errorf("ToCamelCase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSnakeToPascalRoundTrip(t *testing.T) {
	for _, original := range []string{"person", "first_name", "date_of_birth", "a"} {
		t.Run(original, func(t *testing.T) {
			if back := ToSnakeCase(ToPascalCase(original)); back != original {
				t.Errorf("round trip %q -> %q", original, back)
			}
		})
	}
}

func TestConvention(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"", "firstName", "firstName", true},
		{"none", "firstName", "firstName", true},
		{"snake", "firstName", "first_name", true},
		{" Snake ", "firstName", "first_name", true},
		{"camel", "first_name", "firstName", true},
		{"pascal", "first_name", "FirstName", true},
		{"kebab", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := Convention(tt.name)
			if ok != tt.ok {
				t.Fatalf("Convention(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && fn(tt.in) != tt.want {
				t.Errorf("Convention(%q)(%q) = %q, want %q", tt.name, tt.in, fn(tt.in), tt.want)
			}
		})
	}
}

func TestIndent(t *testing.T) {
	got := Indent("a\n\nb", 2)
	if want := "  a\n\n  b"; got != want {
		t.Errorf("Indent() = %q, want %q", got, want)
	}
}
