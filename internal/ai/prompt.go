package ai

import "strings"

// PromptTemplate is the tutoring prompt sent for every problem. {PROBLEM} is
// replaced once with the user's text.
const PromptTemplate = `You are an expert mathematics tutor providing comprehensive, step-by-step solutions.

**Problem:** {PROBLEM}

Structure your response as follows:

**1. Problem Analysis**:
   - Identify the mathematical domain and problem type
   - Highlight key variables and constraints

**2. Key Concepts & Formulas**:
   - List relevant mathematical principles and formulas
   - Explain why each concept is applicable

**3. Step-by-Step Solution**:
   - Break down into logical, numbered steps
   - Explain reasoning behind each step
   - Show all intermediate calculations
   - Use proper mathematical notation

**4. Final Answer**:
   - Present solution clearly and prominently
   - Use \boxed{answer} for important results
   - Include units where applicable

**5. Verification**:
   - Include verification using appropriate method
   - Explain the verification process

**6. Common Mistakes & Tips**:
   - Highlight common errors
   - Provide avoidance tips
   - Suggest related practice problems

Use clear, educational language with proper mathematical notation.`

const problemPlaceholder = "{PROBLEM}"

// BuildPrompt substitutes the first {PROBLEM} placeholder.
func BuildPrompt(problem string) string {
	return strings.Replace(PromptTemplate, problemPlaceholder, problem, 1)
}

// GenerationConfig mirrors the generateContent generationConfig object.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

// SafetySetting is one harm category threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultGenerationConfig keeps answers near-deterministic and long enough
// for a full worked solution.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.1, MaxOutputTokens: 8192, TopP: 0.8, TopK: 40}
}

const blockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"

// DefaultSafetySettings blocks medium-and-above content in all four categories.
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: blockMediumAndAbove},
	}
}
