package extract

// Cities recognized by the City rule.
var Cities = []string{
	"Agra", "Ahmedabad", "Ajmer", "Aligarh", "Allahabad", "Amritsar", "Aurangabad",
	"Bangalore", "Bengaluru", "Bhopal", "Bhubaneswar", "Chandigarh", "Chennai",
	"Coimbatore", "Cuttack", "Dehradun", "Delhi", "New Delhi", "Dhanbad", "Durgapur",
	"Erode", "Faridabad", "Ghaziabad", "Goa", "Gurgaon", "Gurugram", "Guwahati",
	"Gwalior", "Hubli", "Hyderabad", "Indore", "Jabalpur", "Jaipur", "Jalandhar",
	"Jammu", "Jamshedpur", "Jodhpur", "Kanpur", "Kochi", "Cochin", "Kolkata",
	"Kota", "Kozhikode", "Lucknow", "Ludhiana", "Madurai", "Mangalore", "Meerut",
	"Mumbai", "Mysore", "Mysuru", "Nagpur", "Nashik", "Navi Mumbai", "Noida",
	"Patna", "Pondicherry", "Puducherry", "Pune", "Raipur", "Rajkot", "Ranchi",
	"Salem", "Secunderabad", "Shimla", "Srinagar", "Surat", "Thane",
	"Thiruvananthapuram", "Trivandrum", "Tiruchirappalli", "Trichy", "Tirunelveli",
	"Tiruppur", "Udaipur", "Vadodara", "Varanasi", "Vellore", "Vijayawada",
	"Visakhapatnam", "Warangal",
	"London", "New York", "San Francisco", "Singapore", "Dubai", "Sydney",
	"Toronto", "Tokyo", "Paris", "Berlin",
}

// Designations recognized by the Designation rule.
var Designations = []string{
	"Software Engineer", "Senior Software Engineer", "Software Developer",
	"Data Scientist", "Data Analyst", "Business Analyst", "Product Manager",
	"Project Manager", "Engineering Manager", "General Manager", "Sales Manager",
	"HR Manager", "Marketing Manager", "Team Lead", "Tech Lead", "Sales Executive",
	"Vice President", "Chief Executive Officer", "CEO", "CTO", "CFO", "COO",
	"Managing Director", "Director", "Manager", "Engineer", "Developer", "Analyst",
	"Designer", "Architect", "Consultant", "Accountant", "Auditor", "Teacher",
	"Professor", "Lecturer", "Principal", "Doctor", "Nurse", "Pharmacist",
	"Lawyer", "Advocate", "Clerk", "Cashier", "Receptionist", "Technician",
	"Electrician", "Plumber", "Driver", "Intern", "Trainee", "Student",
	"Supervisor", "Administrator", "Officer", "Executive", "Assistant",
}

// Genders recognized by the Gender rule.
var Genders = []string{"Male", "Female", "Transgender", "Non-binary"}

// nameStopwords are capitalized words that start or end sentences and labels
// but are never part of a person's name.
var nameStopwords = wordSet(
	"a", "an", "the", "and", "or", "of", "at", "in", "on", "to", "for", "from", "by", "with",
	"i", "we", "you", "he", "she", "they", "it", "my", "our", "your", "his", "her", "their",
	"this", "that", "these", "those", "is", "am", "are", "was", "were", "be",
	"contact", "call", "email", "mail", "phone", "mobile", "tel", "whatsapp", "reach",
	"meet", "send", "ask", "ping", "message", "text", "visit", "forward", "write", "inform",
	"notify", "welcome", "attn", "attention", "cc",
	"name", "address", "city", "state", "country", "pincode", "pin", "code", "zip",
	"age", "gender", "sex", "dob", "date", "birth", "salary", "amount", "total",
	"invoice", "bill", "receipt", "order", "payment", "paid", "due", "balance",
	"designation", "role", "title", "department", "company", "organisation", "organization",
	"dear", "hello", "hi", "hey", "thanks", "thank", "regards", "sincerely", "please", "kindly",
	"sir", "madam", "mr", "mrs", "ms", "miss", "dr", "prof", "shri", "smt",
	"street", "st", "road", "rd", "nagar", "colony", "lane", "main", "cross", "floor",
	"block", "sector", "near", "opp", "apartment", "apartments", "building", "tower",
	"office", "ltd", "pvt", "private", "limited", "inc", "llc", "corp", "bank", "branch",
	"university", "college", "school", "hospital", "clinic", "india", "tamil", "nadu",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"male", "female", "yes", "no", "note", "notes", "subject", "re", "fwd", "id", "no.",
	"applicant", "customer", "client", "employee", "candidate", "details", "summary",
)

// honorifics before a single capitalized word make it a name.
var honorifics = wordSet("mr", "mrs", "ms", "miss", "dr", "prof", "shri", "smt")

// fieldAliases maps common labels to the field a dedicated rule owns. The
// key-value fallback uses it to avoid duplicating what those rules found.
var fieldAliases = map[string]string{
	"e-mail":         "Email",
	"email id":       "Email",
	"email address":  "Email",
	"mail":           "Email",
	"mail id":        "Email",
	"mobile":         "Phone",
	"mobile no":      "Phone",
	"mobile number":  "Phone",
	"phone no":       "Phone",
	"phone number":   "Phone",
	"contact no":     "Phone",
	"contact number": "Phone",
	"cell":           "Phone",
	"whatsapp":       "Phone",
	"tel":            "Phone",
	"pin":            "Pincode",
	"pin code":       "Pincode",
	"postal code":    "Pincode",
	"zip":            "Pincode",
	"zip code":       "Pincode",
	"full name":      "Name",
	"applicant name": "Name",
	"customer name":  "Name",
	"candidate name": "Name",
	"website":        "Url",
	"web":            "Url",
	"link":           "Url",
	"job title":      "Designation",
	"role":           "Designation",
	"position":       "Designation",
	"town":           "City",
	"sex":            "Gender",
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
