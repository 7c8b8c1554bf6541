package generate

import (
	"fmt"
	"strings"
)

const articleSystemPrompt = "You are a technical writer producing publication-quality articles about open-source software. Ground every claim in the provided material. Do not invent features, benchmarks, or quotes."

func requestHeader(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", req.RepoName)
	if req.RepoDetail != "" {
		fmt.Fprintf(&b, "\nAbout the repository:\n%s\n", req.RepoDetail)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "\nSource material from the repository:\n%s\n", req.Context)
	}
	return b.String()
}

// revisionSuffix carries the reviewer feedback and the article being
// revised, both verbatim.
func revisionSuffix(req Request) string {
	if req.Feedback == "" {
		return ""
	}
	return fmt.Sprintf(`

A previous version of this article was reviewed. Revise it according to the feedback below; keep what the feedback does not object to.

Reviewer feedback:
%s

Previous article:
%s
`, req.Feedback, req.PriorContent)
}

func directPrompt(req Request) string {
	return fmt.Sprintf(`%s
Write a complete technical article introducing this repository: what it does, how it is built, and why its design choices matter. Use markdown with section headings. Keep the article within about %d words.%s`,
		requestHeader(req), req.WordLimit, revisionSuffix(req))
}

func detailPrompt(req Request) string {
	return fmt.Sprintf(`%s
Write an exhaustive technical walkthrough of this repository: purpose, architecture, the role of each significant file you were shown, and notable implementation details. Do not worry about length; thoroughness matters more than brevity. Use markdown with section headings.%s`,
		requestHeader(req), revisionSuffix(req))
}

func condensePrompt(detailed string, wordLimit int) string {
	return fmt.Sprintf(`Below is an exhaustive technical walkthrough of an open-source repository. Condense it into a polished article of about %d words. Preserve the technical substance and the section structure; cut repetition and minor detail first. Use markdown.

%s`, wordLimit, detailed)
}
