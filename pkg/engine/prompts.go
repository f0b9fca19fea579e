package engine

import (
	"fmt"
	"strings"
)

// categorySummaryTargetLength bounds refreshed category summaries, in
// characters.
const categorySummaryTargetLength = 800

const extractPrompt = `# Task
Extract long-term memories about the user or the agent from the conversation below. Each memory must be complete, self-contained, and understandable on its own.
Only extract facts, preferences, and habits the user explicitly stated or confirmed. Do not include the assistant's guesses or suggestions.

# Memory categories (use only these names)
%s

# Requirements
- Describe each memory in one concise sentence (under 30 words).
- Tag each memory with one or more of the categories above.
- Use the same language as the conversation.
- Skip temporary, one-off information (such as "it is raining today"); only keep information with lasting value.

# Output format (XML)
<item>
  <memory>
    <content>Memory content 1</content>
    <categories>
      <category>user</category>
    </categories>
  </memory>
  <memory>
    <content>Memory content 2</content>
    <categories>
      <category>soul</category>
      <category>user</category>
    </categories>
  </memory>
</item>

# Conversation
<resource>
%s
</resource>
`

const categorySummaryPrompt = `# Task
Merge the new memory items into the existing content of this topic and produce an updated summary. Keep the Markdown structure and stay within about %d characters.

# Topic
%s

# Existing content
<content>
%s
</content>

# New memory items
<item>
%s
</item>

# Output
Output the updated Markdown content directly, without explanations or extra markup. Do not wrap it in ` + "```markdown" + ` fences.
`

const categoryRankerPrompt = `# Task
Select at most %d categories from the list below that are most relevant to the query, ordered from most to least relevant.

# Rules
- Only include categories that are truly relevant to the query.
- At most %d categories.
- The order is the relevance ranking; the first is the most relevant.
- Do not invent or modify category IDs; copy them from the list.
- Return an empty array if no category is relevant.

# Output format (JSON)
` + "```json" + `
{"analysis": "brief analysis", "categories": ["category_id_1", "category_id_2"]}
` + "```" + `

# Query
%s

# Available categories
%s
`

const itemRankerPrompt = `# Task
Given the query and the relevant categories already selected, select at most %d memory items from the list below that are most relevant, ordered from most to least relevant.

# Rules
- Only consider memories belonging to the selected categories.
- Only include items that are truly relevant to the query.
- At most %d items.
- The order is the relevance ranking.
- Do not invent or modify item IDs.
- Return an empty array if no item is relevant.

# Output format (JSON)
` + "```json" + `
{"analysis": "brief analysis", "items": ["item_id_1", "item_id_2"]}
` + "```" + `

# Query
%s

# Selected relevant categories
%s

# Available memory items
%s
`

const resourceRankerPrompt = `# Task
Given the query and the context so far, select at most %d resources from the list below that are most relevant, ordered by relevance.

# Rules
- At most %d resources.
- The order is the relevance ranking.
- Do not invent or modify resource IDs.
- Return an empty array if no resource is relevant.

# Output format (JSON)
` + "```json" + `
{"analysis": "brief analysis", "resources": ["resource_id_1"]}
` + "```" + `

# Query
%s

# Context
%s

# Available resources
%s
`

var resourceEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func buildExtractPrompt(categoryNames []string, transcript string) string {
	var list strings.Builder
	for _, name := range categoryNames {
		fmt.Fprintf(&list, "- %s\n", name)
	}
	return fmt.Sprintf(extractPrompt, strings.TrimRight(list.String(), "\n"), resourceEscaper.Replace(transcript))
}

func buildCategorySummaryPrompt(category, original string, newLines []string) string {
	return fmt.Sprintf(categorySummaryPrompt, categorySummaryTargetLength, category, original, strings.Join(newLines, "\n"))
}

func buildCategoryRankerPrompt(query string, topK int, data string) string {
	return fmt.Sprintf(categoryRankerPrompt, topK, topK, query, data)
}

func buildItemRankerPrompt(query string, topK int, relevantCategories, data string) string {
	return fmt.Sprintf(itemRankerPrompt, topK, topK, query, relevantCategories, data)
}

func buildResourceRankerPrompt(query string, topK int, contextInfo, data string) string {
	return fmt.Sprintf(resourceRankerPrompt, topK, topK, query, contextInfo, data)
}
