package services

import "github.com/careatlas/queryengine/internal/domain/entities"

// intentExemplars holds a handful of representative queries per intent.
// The classifier embeds these once at startup and compares each incoming
// query against them; the exact wording is frozen per an explicit
// implementation decision (see the project's design notes) rather than
// calibrated against a held-out set, since no such set ships with this
// corpus.
var intentExemplars = map[entities.Intent][]string{
	entities.IntentCount: {
		"how many hospitals offer cardiology",
		"count the clinics in Accra",
		"number of facilities with dialysis",
		"how many pharmacies are there",
	},
	entities.IntentAggregate: {
		"which region has the most hospitals",
		"aggregate facilities per region",
		"breakdown of facility types by region",
		"total doctors across all facilities",
	},
	entities.IntentAnomalyDetection: {
		"find suspicious facility capability claims",
		"detect anomalies in bed to doctor ratios",
		"which facilities look like outliers",
		"flag facilities with implausible claims",
	},
	entities.IntentValidation: {
		"can this clinic really perform neurosurgery",
		"validate the claims of this facility",
		"does this hospital have the equipment it claims",
		"check if this facility meets requirements for cardiac surgery",
	},
	entities.IntentDistanceQuery: {
		"how far is Kumasi from Accra",
		"distance between Tamale and Bolgatanga",
		"hospitals within 30 km of Tamale",
		"facilities near Cape Coast within 20 kilometers",
	},
	entities.IntentCoverageGap: {
		"where are the coverage gaps for cardiology",
		"which areas lack nearby facilities",
		"find underserved regions for dialysis",
		"cold spots for emergency care",
	},
	entities.IntentMedicalDesert: {
		"which regions are medical deserts for oncology",
		"regions without cardiology within 75 km",
		"find medical deserts for orthopedic care",
		"underserved regions for specialist care",
	},
	entities.IntentSinglePointFailure: {
		"which specialties are offered by only one facility",
		"single point of failure for neurosurgery",
		"rare specialties with few providers",
		"specialties at risk if one facility closes",
	},
	entities.IntentFacilityLookup: {
		"tell me about Korle Bu Teaching Hospital",
		"details for the facility named 37 Military Hospital",
		"look up Ridge Hospital",
		"information about Komfo Anokye Teaching Hospital",
	},
	entities.IntentServiceSearch: {
		"facility with cardiac catheterization",
		"who offers dialysis treatment",
		"find facilities that do cataract surgery",
		"which clinics provide physiotherapy",
	},
	entities.IntentSpecialtySearch: {
		"facilities offering cardiology",
		"list hospitals with neurosurgery",
		"which clinics specialize in dermatology",
		"find oncology centers",
	},
	entities.IntentComparison: {
		"compare Korle Bu and Komfo Anokye",
		"which is closer, Ridge Hospital or 37 Military Hospital",
		"compare cardiology facilities in Accra and Kumasi",
		"contrast two hospitals by capacity",
	},
	entities.IntentPlanning: {
		"deploy a cardiology specialist across Ghana",
		"plan a route to visit all dialysis centers",
		"where should we place a new hospital",
		"plan capacity for the northern region",
	},
	entities.IntentGeneral: {
		"tell me about healthcare in Ghana",
		"what can you help me with",
		"general information about facilities",
		"hello",
	},
}
