// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package researchserver

import (
	"bytes"
	"text/template"
)

// searchPromptTmpl is the generate_search_prompt template. It instructs
// the model to search arXiv via the search_papers tool and synthesize
// the findings.
var searchPromptTmpl = template.Must(template.New("search").Parse(`Search for {{.NumPapers}} academic papers about '{{.Topic}}' using the search_papers tool.

Follow these instructions:
1. First, search for papers using search_papers(topic='{{.Topic}}', max_results={{.NumPapers}})
2. For each paper found, extract and organize the following information:
   - Paper title
   - Authors
   - Publication date
   - Brief summary of the key findings
   - Main contributions or innovations
   - Methodologies used
   - Relevance to the topic '{{.Topic}}'

3. Provide a comprehensive summary that includes:
   - Overview of the current state of research in '{{.Topic}}'
   - Common themes and trends across the papers
   - Key research gaps or areas for future investigation
   - Most impactful or influential papers in this area

4. Organize your findings in a clear, structured format with headings and bullet points for easy readability.

Please present both detailed information about each paper and a high-level synthesis of the research landscape in {{.Topic}}.`))

// renderSearchPrompt executes the search prompt template for a topic.
func renderSearchPrompt(topic string, numPapers int) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Topic     string
		NumPapers int
	}{Topic: topic, NumPapers: numPapers}
	if err := searchPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
