package mcpserver

// GraphSchema describes the graph that the tools query, for LLM consumers
// interpreting tool results.
const GraphSchema = `# twigraph Graph Schema

The graph is a directed multigraph of social-media accounts built from
collected posts. Every post becomes one edge.

## Nodes

- ` + "`" + `public` + "`" + `: a single internal sink. Plain status posts point at it. It is
  never categorized and cannot be removed.
- Accounts, keyed by the platform id (` + "`" + `id` + "`" + `). Attributes:
  ` + "`" + `screenname` + "`" + ` (lowercased handle), ` + "`" + `followers` + "`" + `, ` + "`" + `friends` + "`" + `, ` + "`" + `statuses` + "`" + `,
  ` + "`" + `created` + "`" + `, ` + "`" + `observed` + "`" + ` (time of the post the attributes were read from),
  ` + "`" + `tag` + "`" + ` (label list) and ` + "`" + `initialtag` + "`" + ` (seeded from the tagging file).
  Accounts only known as a reply target are stubs with epoch timestamps.

## Edges

| type | from | to |
|---|---|---|
| status | author | public |
| reply | author | replied-to account |
| retweet | original author | retweeter |
| quote | original author | quoting account |

Edges carry ` + "`" + `text` + "`" + `, ` + "`" + `lang` + "`" + `, ` + "`" + `hashtags` + "`" + ` (lowercased), ` + "`" + `mentions` + "`" + `, ` + "`" + `created` + "`" + `
and the post id. Parallel edges between the same pair are distinguished by ` + "`" + `key` + "`" + `.

## Categories

Seeded accounts take their first label. Otherwise the most frequent label
wins when it occurs at least 1.25 times the average label count; a tie or a
weaker majority yields ` + "`" + `inconsistent` + "`" + `, no labels yield ` + "`" + `unknown` + "`" + `.
Labels spread from seeded accounts to the accounts that retweeted them,
round by round.

## Metrics

Attached on demand, one score per node: ` + "`" + `hub` + "`" + ` and ` + "`" + `authority` + "`" + ` (HITS),
` + "`" + `pagerank` + "`" + `, ` + "`" + `betweenness` + "`" + `, ` + "`" + `indegree` + "`" + `, ` + "`" + `outdegree` + "`" + ` and ` + "`" + `currentflow` + "`" + `.
HITS and PageRank sum to 1 over all nodes; the others are normalized
centralities in [0, 1].
`
