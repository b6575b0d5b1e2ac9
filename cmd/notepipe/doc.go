// Command notepipe drives the transcript pipeline: discover new transcript
// files, analyze them with the Gemini CLI, and upload approved ones to an
// Open Notebook instance. All pipeline state lives in each file's YAML
// frontmatter, so commands can be interrupted and rerun safely.
package main
