package config

// DefaultProductiveDomains returns the curated allow-list of hosts that count
// as productive. Entries are matched by substring, so "github.com" also covers
// "gist.github.com". Entries with a path only match that section of the site.
func DefaultProductiveDomains() []string {
	return []string{
		// Code hosting & Q&A
		"github.com",
		"stackoverflow.com",
		"stackexchange.com",
		"developer.mozilla.org",

		// Articles & references
		"medium.com",
		"dev.to",
		"css-tricks.com",
		"smashingmagazine.com",
		"wikipedia.org",

		// Playgrounds
		"codepen.io",
		"jsfiddle.net",
		"replit.com",
		"codesandbox.io",

		// Practice
		"leetcode.com",
		"hackerrank.com",
		"codewars.com",
		"exercism.io",

		// Courses
		"freecodecamp.org",
		"theodinproject.com",
		"udemy.com",
		"coursera.org",
		"edx.org",
		"pluralsight.com",
		"frontendmasters.com",
		"egghead.io",

		// Video & streaming
		"youtube.com",
		"vimeo.com",
		"twitch.tv",

		// Collaboration
		"discord.com",
		"slack.com",
		"notion.so",
		"evernote.com",
		"trello.com",
		"asana.com",
		"jira.com",
		"confluence.com",

		// Search
		"google.com",
		"bing.com",
		"duckduckgo.com",

		// Programming subreddits
		"reddit.com/r/programming",
		"reddit.com/r/webdev",
		"reddit.com/r/javascript",
		"reddit.com/r/reactjs",
	}
}
