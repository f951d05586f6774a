package middlewares

var Responses = struct {
	FailedValidations         *NewRM
	InternalServerError       *NewRM
	AdminNotFound             *NewRM
	InvalidRoles              *NewRM
	PaymentNotFound           *NewRM
	ReceiptNotFound           *NewRM
	PaymentVerified           *NewRM
	PaymentVerificationFailed *NewRM
	InvalidUTR                *NewRM
	PaymentAlreadyFinal       *NewRM
	GatewayUnavailable        *NewRM
	ReceiptUnavailable        *NewRM
	ReceiptSent               *NewRM
	InvalidWebhook            *NewRM
	AlreadyExists             *NewRM
}{
	FailedValidations: &NewRM{
		Language.English: "Failed field validations",
		Language.Hindi:   "फ़ील्ड सत्यापन विफल रहा",
	},
	InternalServerError: &NewRM{
		Language.English: "Internal server error",
		Language.Hindi:   "सर्वर में समस्या है",
	},
	AdminNotFound: &NewRM{
		Language.English: "Invalid username or password",
		Language.Hindi:   "उपयोगकर्ता नाम या पासवर्ड गलत है",
	},
	InvalidRoles: &NewRM{
		Language.English: "Invalid roles",
		Language.Hindi:   "आपको यह कार्य करने की अनुमति नहीं है",
	},
	PaymentNotFound: &NewRM{
		Language.English: "Payment not found",
		Language.Hindi:   "भुगतान नहीं मिला",
	},
	ReceiptNotFound: &NewRM{
		Language.English: "Receipt not found",
		Language.Hindi:   "रसीद नहीं मिली",
	},
	PaymentVerified: &NewRM{
		Language.English: "Payment verified successfully",
		Language.Hindi:   "भुगतान सफलतापूर्वक सत्यापित हुआ",
	},
	PaymentVerificationFailed: &NewRM{
		Language.English: "Payment verification failed",
		Language.Hindi:   "भुगतान सत्यापन विफल रहा",
	},
	InvalidUTR: &NewRM{
		Language.English: "Invalid UTR number. UTR should be 12 digits.",
		Language.Hindi:   "अमान्य UTR नंबर। UTR 12 अंकों का होना चाहिए।",
	},
	PaymentAlreadyFinal: &NewRM{
		Language.English: "Payment can no longer be changed",
		Language.Hindi:   "भुगतान अब बदला नहीं जा सकता",
	},
	GatewayUnavailable: &NewRM{
		Language.English: "Payment gateway unavailable",
		Language.Hindi:   "भुगतान गेटवे उपलब्ध नहीं है",
	},
	ReceiptUnavailable: &NewRM{
		Language.English: "Failed generating receipt",
		Language.Hindi:   "रसीद बनाने में विफल",
	},
	ReceiptSent: &NewRM{
		Language.English: "Receipt sent successfully",
		Language.Hindi:   "रसीद सफलतापूर्वक भेजी गई",
	},
	InvalidWebhook: &NewRM{
		Language.English: "Invalid webhook",
		Language.Hindi:   "अमान्य वेबहुक",
	},
	AlreadyExists: &NewRM{
		Language.English: "Already exists",
		Language.Hindi:   "पहले से मौजूद है",
	},
}

type NewRM map[string]string

var Language = struct {
	English string
	Hindi   string
}{
	English: "en",
	Hindi:   "hi",
}
