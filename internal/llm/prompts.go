package llm

import (
	"fmt"
	"strings"
)

// ClassificationPrompt is sent alongside the image bytes.
func ClassificationPrompt(label string) string {
	label = strings.TrimSpace(label)
	return fmt.Sprintf(`You are an expert insurance underwriter assistant.
The user has uploaded an image claiming it is: %q.

Analyze the image carefully.
1. Does the image appear to match the description %q?
2. If it is a document (like a VIN or policy), is it legible?
3. If it is a house/car, is it clearly visible?

Respond in JSON format:
{
  "isValid": boolean,
  "feedback": "Short, friendly sentence explaining your finding."
}`, label, label)
}

// DocumentPrompt asks for request fields and the photos the policy calls for.
const DocumentPrompt = `You are an expert insurance underwriter. I am providing a Policy Declaration, an Underwriting Request, or notes.

Please extract the following information if available:
1. Client Name
2. Policy Number
3. Property Address
4. Client Email Address
5. Client Phone Number

Then, based on the text, determine what photos are needed.
For example:
- If it mentions a "wood stove", add a requirement for "Wood Stove".
- If it mentions "pool", add "Pool".
- If it's a standard home, default to "Front", "Back", "Roof", "Electrical Panel".

Return JSON format ONLY. Do not use Markdown code blocks.
{
  "clientName": "string",
  "policyNumber": "string",
  "address": "string",
  "clientEmail": "string",
  "clientPhone": "string",
  "requirements": [
    { "label": "string", "description": "string", "isMandatory": boolean }
  ]
}`
