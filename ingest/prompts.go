package ingest

import "fmt"

// Prompt contracts for the ingestion pipeline. The model output of each step
// is treated as opaque text threaded into the next step's prompt; the only
// local parsing is the publication year's digit filter.

const normalizationPrompt = `SYSTEM:
You are a deterministic document normalization engine for a RAG system.
You strictly follow instructions and NEVER add meta-text, explanations, or commentary.

USER:
TASK:
Normalize the document below into a canonical structure.

RULES (MANDATORY):
1. Identify all logical headings (including bold text, numbered lines, or ALL CAPS).
2. Convert headings to:
- #  → Document title
- ## → Main sections
- ### → Subsections
3. Preserve ALL text exactly as written.
- Do NOT paraphrase
- Do NOT summarize
- Do NOT remove or add content
4. Preserve tables (<table id="">) and images (<::) exactly as-is.
5. Do NOT add markdown fences, explanations, introductions, or conclusions.
6. Output ONLY the normalized document text.

OUTPUT CONSTRAINT:
- The output MUST start with the first header.
- The output MUST end with the final line of content.
- Any text outside the document is INVALID.

CONTENT TO NORMALIZE:
%s`

const pageSummaryPrompt = `Summarize the following page in 2–3 concise sentences.
Also if you find any publication year mention it after summary, only year.
Also, add keywords related to the content of the page at the end of the summary after publication year.
Example: "This page discusses... Publication Year: 2020. Keywords: physics, quantum mechanics."

Page:
%s`

const documentSummaryPrompt = `Combine the following page summaries into ONE coherent summary,
concise document-level summary,
provide publication year if mentioned.
also keep keywords at the end.
Summary need to be plain text.

%s`

const publicationYearPrompt = `Extract the publication year from the document summary below.
If unknown, return 0, if not found provide random year from 2015 to 2024.
Return ONLY the year as an integer.

Summary:
%s`

const keywordsPrompt = `Extract 5–10 concise keywords from the following summary.
Only Return as a comma-separated list of keywords.

Summary:
%s`

func formatPrompt(template, content string) string {
	return fmt.Sprintf(template, content)
}
