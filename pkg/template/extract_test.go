package template

import (
	"fmt"
	"testing"
)

func TestExtractSingleTaggedBlock(t *testing.T) {
	body := "provider \"azurerm\" {\n  features {}\n}\n\nresource \"azurerm_resource_group\" \"main\" {\n  name     = \"rg-demo\"\n  location = \"eastus\"\n}"
	response := "Here is the template you asked for:\n\n```hcl\n" + body + "\n```\n\nLet me know if you need changes."

	got := Extract(response)
	if got != body {
		t.Errorf("Extract() = %q, want %q", got, body)
	}
}

func TestExtractPriorityAndFallback(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "hcl tag preferred over terraform tag",
			response: "```terraform\nprovider \"aws\" {\n  region = \"us-east-1\"\n}\n```\n\n```hcl\nresource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}\n```",
			want:     "resource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}",
		},
		{
			name:     "terraform tag used when no hcl block",
			response: "```terraform\nprovider \"aws\" {\n  region = \"us-east-1\"\n}\n```",
			want:     "provider \"aws\" {\n  region = \"us-east-1\"\n}",
		},
		{
			name:     "untagged block used as last resort",
			response: "```\nterraform {\n  required_version = \">= 1.5\"\n}\n\nresource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}\n```",
			want:     "terraform {\n  required_version = \">= 1.5\"\n}\n\nresource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}",
		},
		{
			name:     "untagged prose block rejected",
			response: "```\nThis is just some explanation about terraform with no blocks.\n```",
			want:     "",
		},
		{
			name:     "python block ignored",
			response: "```python\nprint(\"resource\")\n```",
			want:     "",
		},
		{
			name:     "no fences at all",
			response: "resource \"aws_s3_bucket\" \"b\" { bucket = \"demo\" }",
			want:     "",
		},
		{
			name:     "empty input",
			response: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.response); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTieBreakPrefersRicherBlock(t *testing.T) {
	short := "resource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}"
	long := "resource \"aws_s3_bucket\" \"b\" {\n  bucket = \"demo\"\n}\n\nresource \"aws_s3_bucket_versioning\" \"v\" {\n  bucket = \"demo\"\n  versioning_configuration {\n    status = \"Enabled\"\n  }\n}"
	response := fmt.Sprintf("A quick illustration first:\n```hcl\n%s\n```\nAnd the full template:\n```hcl\n%s\n```", short, long)

	if got := Extract(response); got != long {
		t.Errorf("Extract() picked the shorter block:\n%q", got)
	}

	// Order independence: the richer block wins even when it comes first.
	response = fmt.Sprintf("```hcl\n%s\n```\n```hcl\n%s\n```", long, short)
	if got := Extract(response); got != long {
		t.Errorf("Extract() picked the shorter block when richer came first")
	}
}

func TestExtractIdempotence(t *testing.T) {
	response := "Intro text.\n```hcl\n\nprovider \"azurerm\" {\n  features {}\n}\n\n```\nOutro."
	first := Extract(response)
	if first == "" {
		t.Fatalf("first extraction came back empty")
	}

	rewrapped := "```hcl\n" + first + "\n```"
	second := Extract(rewrapped)
	if second != first {
		t.Errorf("re-extraction changed content:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestExtractStripsEdgeBlankLinesOnly(t *testing.T) {
	response := "```hcl\n\n\nresource \"null_resource\" \"a\" {\n\n  triggers = {}\n}\n\n```"
	want := "resource \"null_resource\" \"a\" {\n\n  triggers = {}\n}"
	if got := Extract(response); got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}
