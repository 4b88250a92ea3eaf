package codegen

import (
	"strings"
)

// GenerationInput carries the variable parts of a generation prompt.
type GenerationInput struct {
	Scenario    string
	PackageName string
	ClassName   string
	BaseURL     string
	// Standards is optional style/standards text appended before the scenario.
	Standards string
}

// RepairInput carries the variable parts of a repair prompt.
type RepairInput struct {
	Scenario       string
	PackageName    string
	ClassName      string
	CompilerOutput string
	BrokenCode     string
}

const generationPreamble = "Generate a complete Java TestNG test class using Playwright for Java.\n"

const generationConstraints = "MUST include:\n" +
	"try (Playwright playwright = Playwright.create()) { ... }\n" +
	"Use Chromium headless with BrowserType.LaunchOptions.\n" +
	"Use TestNG @Test and include all necessary imports.\n" +
	"Use env vars WEBURL, USERNAME, PASSWORD.\n" +
	"Output ONLY Java code.\n"

const repairPreamble = "You are a senior Java automation engineer.\n" +
	"Fix this Java TestNG test that uses Playwright for Java so it COMPILES.\n\n"

const correctionPrompt = "Fix this Java code so it compiles. " +
	"Ensure imports, braces, and syntax are correct. " +
	"Output ONLY Java code.\n\n"

// BuildGenerationPrompt renders a generation prompt. Output depends only on in.
func BuildGenerationPrompt(in GenerationInput) string {
	var b strings.Builder
	b.WriteString(generationPreamble)
	b.WriteString("Package: " + in.PackageName + "\n")
	b.WriteString("Class: " + in.ClassName + "\n")
	b.WriteString(generationConstraints)
	if base := strings.TrimSpace(in.BaseURL); base != "" {
		b.WriteString("Default base URL when WEBURL is unset: " + base + "\n")
	}
	if std := strings.TrimSpace(in.Standards); std != "" {
		b.WriteString("\nCoding standards:\n")
		b.WriteString(std)
		b.WriteString("\n")
	}
	b.WriteString("\nScenario:\n")
	b.WriteString(in.Scenario)
	return b.String()
}

// BuildRepairPrompt renders a repair prompt. The compiler output and the
// broken source are embedded verbatim.
func BuildRepairPrompt(in RepairInput) string {
	var b strings.Builder
	b.WriteString(repairPreamble)
	b.WriteString("Constraints:\n")
	b.WriteString("- MUST include: try (Playwright playwright = Playwright.create()) { ... }\n")
	b.WriteString("- MUST launch Chromium headless using BrowserType.LaunchOptions (no StartOptions)\n")
	b.WriteString("- MUST use TestNG @Test\n")
	b.WriteString("- MUST include all necessary imports\n")
	b.WriteString("- MUST keep package: " + in.PackageName + "\n")
	b.WriteString("- MUST keep public class name: " + in.ClassName + "\n")
	b.WriteString("- Use env vars WEBURL, USERNAME, PASSWORD\n")
	b.WriteString("- Output ONLY valid Java code (no markdown, no explanations)\n\n")
	b.WriteString("Scenario:\n" + in.Scenario + "\n\n")
	b.WriteString("Compiler output:\n" + in.CompilerOutput + "\n\n")
	b.WriteString("Broken code:\n" + in.BrokenCode + "\n")
	return b.String()
}

// BuildCorrectionPrompt renders the bare "make it compile" prompt.
func BuildCorrectionPrompt(code string) string {
	return correctionPrompt + code
}
