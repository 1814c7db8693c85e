package license

import "regexp"

type pattern struct {
	id string
	re *regexp.Regexp
}

// patterns are tried in order; more specific texts come first so that,
// for example, LGPL is not reported as GPL.
var patterns = []pattern{
	{"LGPL-2.1", regexp.MustCompile(`(?is)GNU Lesser General Public License.*Version 2\.1`)},
	{"LGPL-3.0", regexp.MustCompile(`(?is)GNU Lesser General Public License.*Version 3`)},
	{"GPL-3.0", regexp.MustCompile(`(?is)GNU General Public License.*Version 3`)},
	{"GPL-2.0", regexp.MustCompile(`(?is)GNU General Public License.*Version 2`)},
	{"Apache-2.0", regexp.MustCompile(`(?is)Apache License.*Version 2\.0|Licensed under the Apache License, Version 2\.0`)},
	{"MPL-2.0", regexp.MustCompile(`(?is)Mozilla Public License.*Version 2\.0|MPL 2\.0`)},
	{"EPL-2.0", regexp.MustCompile(`(?is)Eclipse Public License.*2\.0`)},
	{"ISC", regexp.MustCompile(`(?is)ISC License.*Permission to use, copy, modify, and/or distribute`)},
	{"MIT", regexp.MustCompile(`(?is)The MIT License|MIT License Copyright|Permission is hereby granted, free of charge,.*subject to the following conditions`)},
	{"BSD-3-Clause", regexp.MustCompile(`(?is)3-Clause BSD License|redistribution and use.*permitted provided that.*conditions are met.*neither the name.*nor the names of`)},
	{"BSD-2-Clause", regexp.MustCompile(`(?is)2-Clause BSD License|redistribution and use.*permitted provided that.*conditions are met.*binary form must`)},
	{"Unlicense", regexp.MustCompile(`(?is)This is free and unencumbered software released into the public domain`)},
	{"CC0-1.0", regexp.MustCompile(`(?is)CC0 1\.0 Universal|Creative Commons Legal Code.*CC0 1\.0`)},
}

// Detect classifies license text. It reports false when no known license
// matches.
func Detect(text string) (string, bool) {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.id, true
		}
	}
	return "", false
}
