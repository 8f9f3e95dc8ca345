// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

// Package reranking implements post-processing for recommendation diversity.
//
// Rerankers run after the scoring engine has produced a relevance-ordered
// list and may reorder it:
//
//	Snapshot -> Scoring -> Rerankers -> Final Ranking
//	            (relevance)  (diversity)
//
// # Maximal Marginal Relevance
//
// MMR greedily picks the item that maximizes
//
//	lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected
//
// where sim is the Jaccard similarity of the items' genre and tag feature
// ids. Lambda 1.0 keeps pure relevance order.
//
// All rerankers implement recommend.Reranker and are deterministic: equal
// MMR values keep the incoming (score, id) order.
package reranking
