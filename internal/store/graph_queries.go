package store

const (
	putArtifactQuery = `
		OPTIONAL MATCH (prev:Artifact {key: $key})
		WITH coalesce(max(prev.version), 0) AS latest
		CREATE (a:Artifact {key: $key, version: latest + 1, content: $content, created_at: $created_at})
		RETURN a.version AS version
	`

	getArtifactQuery = `
		MATCH (a:Artifact {key: $key})
		RETURN a.content AS content, a.version AS version, a.created_at AS created_at
		ORDER BY a.version DESC
		LIMIT 1
	`

	countArtifactQuery = `
		MATCH (a:Artifact {key: $key})
		RETURN count(a) AS count
	`

	markPendingQuery = `
		MERGE (p:Pending {key: $key})
		SET p.marked_at = $marked_at
	`

	clearPendingQuery = `
		MATCH (p:Pending {key: $key})
		DELETE p
	`

	countPendingQuery = `
		MATCH (p:Pending {key: $key})
		RETURN count(p) AS count
	`
)
