// Package domain models Hawaii Department of Transportation (HDOT) lane
// closure data.
//
// # Data Source
//
// Closure records originate from the HDOT lane closure ArcGIS feature
// service, which publishes one feature per scheduled closure with attributes
// describing the route, direction, intersection bounds, closure type, and
// schedule. The feed is untrusted: every attribute except the object ID may
// be null, and text fields carry embedded newlines and redundant location
// suffixes.
//
// # Feed Conventions
//
// Duplicate emission:
//
//	Rolling 24-hour closures are periodically re-emitted as separate records
//	covering slightly different time sub-ranges while every descriptive field
//	stays identical. These are the same physical closure and are collapsed by
//	[NormalizeClosures]. Shorter closures (e.g. repeated midday work windows)
//	legitimately share descriptive fields across distinct events, so merging
//	requires every group member to carry the "24Hrs" hours pattern.
//
// Location strings:
//
//	Intersection names end with a ", Hawaii, " state suffix followed by
//	country detail, e.g. "Kamehameha Hwy, Hawaii, USA". The suffix adds no
//	information for a Hawaii-only feed and is stripped by
//	[TransformLocationString].
//
// Free text:
//
//	Details and remarks fields embed raw newlines. They are joined into
//	single-line sentences by [ReplaceNewlinesWithPeriods], collapsing the
//	doubled punctuation produced by lines that already end in a period.
//
// Timestamps:
//
//	beginDate/enDate attributes are epoch milliseconds UTC. They are rendered
//	for the analysis backend in Hawaii Standard Time (UTC-10, no daylight
//	saving).
//
// # Impact Scoring
//
// Plan analyses rate each impacted closure on a four-level scale with a fixed
// numeric bijection: Low=1, Medium=2, High=3, Severe=4. The levels and their
// scenario mappings are part of the analysis service contract.
package domain
