package mcpserver

// CommandGrammar describes the utterances the intent analyzer understands.
// LLM clients should phrase run_command text in this grammar.
const CommandGrammar = `# Astra Command Grammar

Every utterance sent to ` + "`" + `run_command` + "`" + ` is classified as **direct**, **vague**
or **unknown**. Only direct utterances change the app.

## Direct commands

| Command | Phrasings |
|---|---|
| Add a page | ` + "`" + `add page <name>` + "`" + `, ` + "`" + `create page <name>` + "`" + `, ` + "`" + `new page <name>` + "`" + `, ` + "`" + `make page <name>` + "`" + `, ` + "`" + `add <name> page` + "`" + `, ` + "`" + `create <name>` + "`" + ` |
| Rename a page | ` + "`" + `rename page <old> to <new>` + "`" + `, ` + "`" + `change page <old> to <new>` + "`" + `, ` + "`" + `rename <old> to <new>` + "`" + `, ` + "`" + `change <old> to <new>` + "`" + ` |
| Delete a page | ` + "`" + `delete page <name>` + "`" + `, ` + "`" + `remove page <name>` + "`" + `, ` + "`" + `delete <name>` + "`" + `, ` + "`" + `remove <name>` + "`" + ` |

Keywords are case-insensitive. Page names keep the case you typed.

## Rules

1. **One command per utterance.** Compound requests are not split.
2. **Targets match by name, then title,** case-insensitively. When several pages
   match, the first one in page order wins.
3. **The last page cannot be deleted.** The reply says so and nothing changes.
4. **Adding never fails.** Duplicate names are allowed; each page gets a fresh id.
5. **Renaming keeps the page id** and recomputes the path from the new name
   (` + "`" + `Pricing Plans` + "`" + ` becomes ` + "`" + `/pricing-plans` + "`" + `).

## Vague and unknown input

- Input shorter than 3 characters, or one or two words starting with a bare
  verb (` + "`" + `add` + "`" + `, ` + "`" + `rename` + "`" + `, ` + "`" + `help` + "`" + `, ...) is **vague**.
- Anything else that matches no phrasing is **unknown**.
- Both come back with up to 4 suggestions. Each suggestion carries a
  ` + "`" + `command` + "`" + ` string that can be sent back verbatim.

## Example

` + "```" + `text
add page Pricing
rename page Pricing to Plans
delete page About
` + "```" + `
`
