package retrieval

import "fmt"

const selectSystemPrompt = "You are a senior engineer surveying an unfamiliar repository. Reply with a JSON array of file paths and nothing else."

func initialSelectPrompt(goal, tree string, maxFiles int) string {
	return fmt.Sprintf(`Goal: %s

Repository file tree:
%s

Pick the files you need to read first to accomplish the goal. Reply with a JSON array of at most %d repository-relative file paths, for example ["README.md", "src/main.py"]. Reply with the JSON array only.`, goal, tree, maxFiles)
}

func refinePrompt(goal, tree, contextTail string, maxFiles int) string {
	return fmt.Sprintf(`Goal: %s

Repository file tree:
%s

You have already read the following (possibly truncated at the start):
%s

If you need more files to accomplish the goal, reply with a JSON array of at most %d additional repository-relative file paths. If you have enough, reply with an empty JSON array []. Reply with the JSON array only.`, goal, tree, contextTail, maxFiles)
}
