package knowledge

// Built-in minimal vocabulary used when no external data files are
// configured. These tables are configuration, not logic: the expanded
// vocabulary ships as newline-delimited data files built by cmd/etl.

// builtinDrugSuffixes lists pharmaceutical naming suffixes in decreasing
// specificity. Weights are retained for future threshold tuning; the current
// guard treats any suffix hit as a match.
var builtinDrugSuffixes = []suffixWeight{
	{"statin", 0.95},
	{"sartan", 0.95},
	{"opril", 0.95},
	{"cillin", 0.95},
	{"mycin", 0.90},
	{"dipine", 0.90},
	{"azole", 0.85},
	{"olol", 0.85},
	{"prazole", 0.90},
	{"tidine", 0.85},
	{"formin", 0.85},
	{"parin", 0.85},
	{"coxib", 0.90},
	{"triptan", 0.90},
	{"afil", 0.80},
	{"semide", 0.85},
}

// conditionMorphemes are suffixes that mark a word as a clinical condition.
var conditionMorphemes = []string{
	"itis",
	"osis",
	"pathy",
	"emia",
}

// builtinClinicalTerms is the minimal clinical whitelist: drug names,
// conditions, lab tests, dosage units, routes of administration, and
// multi-word clinical phrases. All lowercase.
var builtinClinicalTerms = []string{
	// Drugs
	"lisinopril",
	"metformin",
	"atorvastatin",
	"simvastatin",
	"rosuvastatin",
	"losartan",
	"valsartan",
	"amlodipine",
	"metoprolol",
	"atenolol",
	"carvedilol",
	"warfarin",
	"apixaban",
	"rivaroxaban",
	"clopidogrel",
	"aspirin",
	"furosemide",
	"spironolactone",
	"hydrochlorothiazide",
	"insulin",
	"glipizide",
	"omeprazole",
	"pantoprazole",
	"levothyroxine",
	"gabapentin",
	"amoxicillin",
	"azithromycin",
	"ciprofloxacin",
	"prednisone",
	"albuterol",
	"ibuprofen",
	"acetaminophen",
	"morphine",
	"fentanyl",
	"heparin",
	"nitroglycerin",
	"digoxin",
	"amiodarone",
	"sertraline",
	"fluoxetine",

	// Conditions
	"hypertension",
	"hypotension",
	"diabetes",
	"hyperlipidemia",
	"hypothyroidism",
	"hyperthyroidism",
	"asthma",
	"copd",
	"pneumonia",
	"bronchitis",
	"anemia",
	"sepsis",
	"stroke",
	"arrhythmia",
	"fibrillation",
	"tachycardia",
	"bradycardia",
	"angina",
	"ischemia",
	"infarction",
	"cirrhosis",
	"hepatitis",
	"nephropathy",
	"neuropathy",
	"retinopathy",
	"osteoporosis",
	"arthritis",
	"dementia",
	"depression",
	"anxiety",
	"obesity",
	"cancer",
	"carcinoma",
	"lymphoma",
	"leukemia",

	// Multi-word clinical phrases
	"heart failure",
	"congestive heart failure",
	"heart disease",
	"coronary artery disease",
	"atrial fibrillation",
	"myocardial infarction",
	"chest pain",
	"shortness of breath",
	"blood pressure",
	"heart rate",
	"type 2 diabetes",
	"type 1 diabetes",
	"diabetes mellitus",
	"kidney disease",
	"chronic kidney disease",
	"renal failure",
	"pulmonary embolism",
	"deep vein thrombosis",
	"acute coronary syndrome",
	"transient ischemic attack",

	// Lab tests and diagnostics
	"hemoglobin",
	"hematocrit",
	"creatinine",
	"glucose",
	"cholesterol",
	"triglycerides",
	"potassium",
	"sodium",
	"troponin",
	"lipase",
	"bilirubin",
	"albumin",
	"platelets",
	"a1c",
	"hba1c",
	"bnp",
	"inr",
	"ecg",
	"ekg",
	"echocardiogram",
	"angiogram",
	"ct",
	"mri",
	"x-ray",
	"ultrasound",

	// Dosage units and routes
	"mg",
	"mcg",
	"ml",
	"units",
	"tablet",
	"capsule",
	"daily",
	"bid",
	"tid",
	"qid",
	"prn",
	"po",
	"iv",
	"im",
	"subcutaneous",
	"oral",
	"sublingual",
	"topical",
}

// builtinCommonWords is the minimal general-English stopword set used by the
// common-words-only suppression guard. All lowercase.
var builtinCommonWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
	"how", "man", "new", "now", "old", "see", "two", "way", "who", "its",
	"did", "yes", "she", "may", "say", "each", "which", "their", "will",
	"about", "would", "there", "could", "other", "after", "first", "well",
	"also", "some", "what", "when", "where", "most", "over", "such", "only",
	"very", "just", "than", "then", "them", "these", "this", "that", "with",
	"from", "have", "been", "were", "they", "more", "into", "your", "upon",
	"patient", "denies", "reports", "presents", "states", "notes", "noted",
	"history", "review", "exam", "examination", "findings", "impression",
	"plan", "assessment", "follow", "visit", "today", "yesterday", "morning",
	"evening", "normal", "stable", "improved", "worsening", "unchanged",
	"mild", "moderate", "severe", "acute", "chronic", "bilateral", "left",
	"right", "upper", "lower", "positive", "negative", "elevated", "low",
	"high", "increased", "decreased", "continue", "start", "stop", "hold",
	"failure", "pain", "pressure",
}

// builtinContextKeywords are clinical-context indicator words for the
// suppression engine's context-window guard. Drawn from cardiology,
// diagnostics, dosing, risk assessment, and lab terminology; the exact list
// is configuration, not part of the algorithm's contract.
var builtinContextKeywords = []string{
	// Cardiology
	"cardiac", "heart", "coronary", "artery", "ventricular", "atrial",
	"systolic", "diastolic", "pressure", "murmur", "valve", "stent",
	// Diagnostics
	"ecg", "ekg", "echo", "echocardiogram", "imaging", "scan", "biopsy",
	"diagnosis", "diagnosed", "symptoms", "syndrome",
	// Dosing
	"dose", "dosage", "mg", "mcg", "daily", "twice", "tablet", "prescribed",
	"medication", "takes", "taking",
	// Risk assessment
	"risk", "score", "factor", "screening", "prognosis",
	// Lab terminology
	"lab", "labs", "level", "levels", "serum", "plasma", "glucose",
	"cholesterol", "creatinine", "hemoglobin", "elevated", "abnormal",
	// General clinical
	"diabetes", "hypertension", "disease", "condition", "treatment",
	"therapy", "clinical", "test", "results",
}
