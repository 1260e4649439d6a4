package rules

// Default returns the built-in rule set used when no rules file is given.
func Default() *RuleSet {
	return &RuleSet{
		StructuralExclude: []string{
			"member-profile-snapshot",
			"member-people-follow-member",
			"member-follow-company",
			"member-follow-company-digest",
			"many-members-connect-members-rollup",
			"people-connect-recommend",
			"people-follow-recommend",
		},
		StructuralInclude: []string{
			"company-recommend-job-digest",
		},
		ContentInclude: []string{
			"/day",
			"apply",
			"available",
			"bonus",
			"contact me",
			"contact my",
			"contract",
			"cv",
			"email me",
			"hiring",
			"job",
			"looking for",
			"looking to",
			"needed",
			"opportunities",
			"opportunity",
			"per day",
			"permanent",
			"recruiting",
			"recruitment",
			"required",
			"resume",
			"role",
			"salary",
			"seeking",
			"vacancies",
			"vacancy",
		},
	}
}

func DefaultSettings() Settings {
	return Settings{
		DimOnSuppress:    false,
		HideOnSuppress:   true,
		DebugAnnotations: false,
		CountingEnabled:  true,
	}
}

func DefaultExtractor() ExtractorConfig {
	return ExtractorConfig{
		ItemSelector:    ".feed-update",
		ContentSelector: "div.text-entity, div.side-article",
		ExcludeSelector: ".comment-entity",
		ExcludeTarget:   "div.text-entity",
		IDAttribute:     "data-id",
	}
}

// DefaultFile is the configuration used when no rules file is configured.
func DefaultFile() *File {
	return &File{
		Rules:     Default(),
		Settings:  DefaultSettings(),
		Extractor: DefaultExtractor(),
	}
}
