package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildGenerationPrompt(t *testing.T) {
	in := GenerationInput{
		Scenario:    "login with valid credentials",
		PackageName: "com.acme",
		ClassName:   "LoginTest",
	}

	p := BuildGenerationPrompt(in)

	assert.True(t, strings.HasPrefix(p, "Generate a complete Java TestNG test class using Playwright for Java.\n"))
	assert.Contains(t, p, "Package: com.acme\n")
	assert.Contains(t, p, "Class: LoginTest\n")
	assert.Contains(t, p, "try (Playwright playwright = Playwright.create()) { ... }")
	assert.Contains(t, p, "BrowserType.LaunchOptions")
	assert.Contains(t, p, "@Test")
	assert.Contains(t, p, "WEBURL, USERNAME, PASSWORD")
	assert.Contains(t, p, "Output ONLY Java code.")
	assert.True(t, strings.HasSuffix(p, "Scenario:\nlogin with valid credentials"))
	assert.NotContains(t, p, "Coding standards")
	assert.NotContains(t, p, "base URL")

	// deterministic
	assert.Equal(t, p, BuildGenerationPrompt(in))
}

func TestBuildGenerationPrompt_OptionalSections(t *testing.T) {
	p := BuildGenerationPrompt(GenerationInput{
		Scenario:    "s",
		PackageName: "p",
		ClassName:   "C",
		BaseURL:     "https://shop.example.com",
		Standards:   "Use page objects.\n",
	})

	assert.Contains(t, p, "Default base URL when WEBURL is unset: https://shop.example.com\n")
	assert.Contains(t, p, "\nCoding standards:\nUse page objects.\n")
	assert.Less(t, strings.Index(p, "Coding standards"), strings.Index(p, "Scenario:"))
}

func TestBuildRepairPrompt(t *testing.T) {
	in := RepairInput{
		Scenario:       "checkout",
		PackageName:    "com.acme",
		ClassName:      "CheckoutTest",
		CompilerOutput: "CheckoutTest.java:[3,1] cannot find symbol\n  symbol: class Page",
		BrokenCode:     "public class CheckoutTest { Page p; }",
	}

	p := BuildRepairPrompt(in)

	assert.True(t, strings.HasPrefix(p, "You are a senior Java automation engineer.\n"))
	assert.Contains(t, p, "- MUST keep package: com.acme\n")
	assert.Contains(t, p, "- MUST keep public class name: CheckoutTest\n")
	assert.Contains(t, p, "(no StartOptions)")
	assert.Contains(t, p, "Scenario:\ncheckout\n\n")
	assert.Contains(t, p, "Compiler output:\n"+in.CompilerOutput+"\n\n")
	assert.True(t, strings.HasSuffix(p, "Broken code:\n"+in.BrokenCode+"\n"))
}

func TestBuildCorrectionPrompt(t *testing.T) {
	p := BuildCorrectionPrompt("class A {")
	assert.True(t, strings.HasPrefix(p, "Fix this Java code so it compiles."))
	assert.True(t, strings.HasSuffix(p, "\n\nclass A {"))
}
