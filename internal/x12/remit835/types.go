// Package remit835 projects 835 Health Care Claim Payment/Advice transaction
// sets into remittance documents, one per claim payment loop.
package remit835

// TransactionCode is the ST01 value handled by this package
const TransactionCode = "835"

// Entity identifier codes used to pick the payer and payee N1 loops
const (
	EntityPayer = "PR"
	EntityPayee = "PE"
)

// Document is the decoded form of one claim payment. The six top-level keys
// are always present in its JSON form.
type Document struct {
	Payment             Payment              `json:"payment"`
	Payer               Payer                `json:"payer"`
	Payee               Payee                `json:"payee"`
	Claim               Claim                `json:"claim"`
	ProviderAdjustments []ProviderAdjustment `json:"provider_adjustments"`
	HeaderInfo          HeaderInfo           `json:"header_info"`
}

// Payment is the financial header of the transaction (BPR, TRN, DTM)
type Payment struct {
	DTM DateTime `json:"dtm"`
	BPR BPR      `json:"bpr"`
	TRN TRN      `json:"trn"`
}

// DateTime is a DTM segment
type DateTime struct {
	DateCode string `json:"date_code"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// BPR is the financial information segment
type BPR struct {
	TransactionHandlingCode            string `json:"transaction_handling_code"`
	TotalActualProviderPaymentAmt      string `json:"total_actual_provider_payment_amt"`
	CreditorDebitFlagCode              string `json:"creditor_debit_flag_code"`
	PaymentMethodCode                  string `json:"payment_method_code"`
	PaymentFormatCode                  string `json:"payment_format_code"`
	SenderDFIIDNumberQualifier         string `json:"sender_dfiid_number_qualifier"`
	SenderDFIIdentifier                string `json:"sender_dfi_identifier"`
	SenderAccountNumberQualifier       string `json:"sender_account_number_qualifier"`
	SenderBankAcctNumber               string `json:"sender_bank_acct_number"`
	PayerIdentifier                    string `json:"payer_identifier"`
	PayerOriginatingCoSupplementalCode string `json:"payer_originating_co_supplemental_code"`
	ReceiverDFIIDNumberQualifier       string `json:"receiver_dfiid_number_qualifier"`
	ReceiverOrProviderBankIDNumber     string `json:"receiver_or_provider_bank_id_number"`
	ReceiverAcctNumberQualifier        string `json:"receiver_acct_number_qualifier"`
	ReceiverOrProviderAccountNumber    string `json:"receiver_or_provider_account_number"`
	CheckIssueOrEFTEffectiveDate       string `json:"check_issue_or_eft_effective_date"`
	BusinessFunctionCode               string `json:"business_function_code"`
}

// TRN is the reassociation trace number
type TRN struct {
	TraceTypeCode                        string `json:"trace_type_code"`
	CheckOrEFTTraceNumber                string `json:"check_or_eft_trace_number"`
	TracePayerIdentifier                 string `json:"trace_payer_identifier"`
	TracePayerOriginatingCoSupplementary string `json:"trace_payer_originating_co_supplemental_code"`
}

// Contact is a PER segment
type Contact struct {
	ContactFunctionCd             string `json:"contact_function_cd"`
	ContactName                   string `json:"contact_name"`
	CommunicationNumberQualifier1 string `json:"communication_number_qualifier1"`
	ContactCommunication1         string `json:"contact_communication1"`
	CommunicationNumberQualifier2 string `json:"communication_number_qualifier2"`
	ContactCommunication2         string `json:"contact_communication2"`
	CommunicationNumberQualifier3 string `json:"communication_number_qualifier3"`
	ContactCommunication3         string `json:"contact_communication3"`
	ContactInquiryReference       string `json:"contact_inquiry_reference"`
}

// Identification is a REF segment
type Identification struct {
	IDQualifierCode string `json:"id_qualifier_code"`
	ID              string `json:"id"`
	Description     string `json:"description"`
}

// Payer is the 1000A loop
type Payer struct {
	EntityIdentifierCode     string           `json:"entity_identifier_code"`
	PayerName                string           `json:"payer_name"`
	IDCodeQualifier          string           `json:"id_code_qualifier"`
	PayerIdentifier          string           `json:"payer_identifier"`
	EntityRelationshipCode   string           `json:"entity_relationship_code"`
	AddressLine1             string           `json:"payer_address_line_1"`
	AddressLine2             string           `json:"payer_address_line_2"`
	CityName                 string           `json:"payer_city_name"`
	StateCode                string           `json:"payer_state_code"`
	PostalZoneOrZipCode      string           `json:"payer_postal_zone_or_zip_code"`
	CountryCode              string           `json:"country_code"`
	LocationQualifier        string           `json:"location_qualifier"`
	CountrySubdivisionCode   string           `json:"country_subdivision_code"`
	ContactInfo              []Contact        `json:"payer_contact_info"`
	AdditionalIdentification []Identification `json:"payer_additional_identification"`
}

// Payee is the 1000B loop
type Payee struct {
	EntityIdentifierCode           string           `json:"entity_identifier_code"`
	PayeeName                      string           `json:"payee_name"`
	IDCodeQualifier                string           `json:"id_code_qualifier"`
	PayeeIdentifier                string           `json:"payee_identifier"`
	EntityRelationshipCode         string           `json:"entity_relationship_code"`
	AddressLine1                   string           `json:"payee_address_line_1"`
	AddressLine2                   string           `json:"payee_address_line_2"`
	CityName                       string           `json:"payee_city_name"`
	StateCode                      string           `json:"payee_state_code"`
	PostalZoneOrZipCode            string           `json:"payee_postal_zone_or_zip_code"`
	CountryCode                    string           `json:"country_code"`
	LocationQualifier              string           `json:"location_qualifier"`
	CountrySubdivisionCode         string           `json:"country_subdivision_code"`
	AdditionalIdentification       []Identification `json:"payee_additional_identification"`
	DeliveryReportTransmissionCode string           `json:"delivery_report_transmission_code"`
	DeliveryName                   string           `json:"delivery_name"`
	DeliveryCommunicationNumber    string           `json:"delivery_communication_number"`
	DeliveryReferenceIdentifier    string           `json:"delivery_reference_identifier"`
}

// Claim is the 2100 claim payment loop with its service lines
type Claim struct {
	CLP                    CLP                    `json:"clp"`
	FirstNM1Patient        Name                   `json:"first_nm1_patient"`
	ClaimNames             []Name                 `json:"claim_names"`
	ClaimContacts          []Contact              `json:"claim_contacts"`
	MIA                    MIA                    `json:"mia"`
	MOA                    MOA                    `json:"moa"`
	RelatedIdentifications []Identification       `json:"claim_related_identifications"`
	SupplementalAmount     []SupplementalAmount   `json:"claim_supplemental_amount"`
	SupplementalQuantity   []SupplementalQuantity `json:"claim_supplemental_quantity"`
	Adjustments            []Adjustment           `json:"claim_adjustments"`
	Lines                  []ClaimLine            `json:"claim_lines"`
	Dates                  []DateTime             `json:"claim_dates"`
}

// CLP is the claim payment information segment
type CLP struct {
	PatientControlNumber         string `json:"patient_control_number"`
	ClaimStatusCode              string `json:"claim_status_code"`
	TotalClaimChargeAmount       string `json:"total_claim_charge_amount"`
	ClaimPaymentAmount           string `json:"claim_payment_amount"`
	PatientResponsibilityAmount  string `json:"patient_responsibility_amount"`
	ClaimFilingIndicatorCode     string `json:"claim_filing_indicator_code"`
	PayerClaimControlNumber      string `json:"payer_claim_control_number"`
	FacilityCodeValue            string `json:"facility_code_value"`
	ClaimFrequencyCode           string `json:"claim_frequency_code"`
	PatientStatusCode            string `json:"patient_status_code"`
	DRGCode                      string `json:"drg_code"`
	DRGWeight                    string `json:"drg_weight"`
	DischargeFraction            string `json:"discharge_fraction"`
	YesNoConditionOrResponseCode string `json:"yes_no_condition_or_response_code"`
}

// Name is an NM1 segment
type Name struct {
	EntityIdentifierCode   string `json:"entity_identifier_code"`
	EntityTypeQualifier    string `json:"entity_type_qualifier"`
	LastNameOrOrganization string `json:"last_name_or_organization"`
	FirstName              string `json:"first_name"`
	MiddleName             string `json:"middle_name"`
	NamePrefix             string `json:"name_prefix"`
	NameSuffix             string `json:"name_suffix"`
	IDCodeQualifier        string `json:"id_code_qualifier"`
	Identifier             string `json:"identifier"`
	EntityRelationshipCode string `json:"entity_relationship_code"`
}

// MIA is inpatient adjudication information
type MIA struct {
	CoveredDaysOrVisitsCount         string `json:"covered_days_or_visits_count"`
	PPSOperationOutlierAmount        string `json:"pps_operation_outlier_amount"`
	LifetimePsychiatricDaysCount     string `json:"lifetime_psychiatric_days_count"`
	ClaimDRGAmount                   string `json:"claim_drg_amount"`
	ClaimPaymentRemarkCode           string `json:"claim_payment_remark_code"`
	ClaimDSHAmount                   string `json:"claim_dsh_amount"`
	ClaimMSPPassThruAmount           string `json:"claim_msp_pass_thru_amount"`
	ClaimPPSCapitalAmount            string `json:"claim_pps_capital_amount"`
	PPSCapitalFSPDRGAmount           string `json:"pps_capital_fsp_drg_amount"`
	PPSCapitalHSPDRGAmount           string `json:"pps_capital_hsp_drg_amount"`
	PPSCapitalDSHDRGAmount           string `json:"pps_capital_dsh_drg_amount"`
	OldCapitalAmount                 string `json:"old_capital_amount"`
	PPSCapitalIMEAmount              string `json:"pps_capital_ime_amount"`
	PPSOperHSPSpecDRGAmount          string `json:"pps_oper_hsp_spec_drg_amount"`
	CostReportDayCount               string `json:"cost_report_day_count"`
	PPSOperFSPSpecDRGAmount          string `json:"pps_oper_fsp_spec_drg_amount"`
	ClaimPPSOutlierAmount            string `json:"claim_pps_outlier_amount"`
	ClaimIndirectTeaching            string `json:"claim_indirect_teaching"`
	NonPayProfCompAmount             string `json:"non_pay_prof_comp_amount"`
	InpatientClaimPaymentRemarkCode1 string `json:"inpatient_claim_payment_remark_code_1"`
	InpatientClaimPaymentRemarkCode2 string `json:"inpatient_claim_payment_remark_code_2"`
	InpatientClaimPaymentRemarkCode3 string `json:"inpatient_claim_payment_remark_code_3"`
	InpatientClaimPaymentRemarkCode4 string `json:"inpatient_claim_payment_remark_code_4"`
	PPSCapitalExceptionAmount        string `json:"pps_capital_exception_amount"`
}

// MOA is outpatient adjudication information
type MOA struct {
	ReimbursementRate                 string `json:"reimbursement_rate"`
	ClaimHCPCSPayableAmount           string `json:"claim_hcpcs_payable_amount"`
	OutpatientClaimPaymentRemarkCode1 string `json:"outpatient_claim_payment_remark_code_1"`
	OutpatientClaimPaymentRemarkCode2 string `json:"outpatient_claim_payment_remark_code_2"`
	OutpatientClaimPaymentRemarkCode3 string `json:"outpatient_claim_payment_remark_code_3"`
	OutpatientClaimPaymentRemarkCode4 string `json:"outpatient_claim_payment_remark_code_4"`
	OutpatientClaimPaymentRemarkCode5 string `json:"outpatient_claim_payment_remark_code_5"`
	ClaimESRDPaymentAmount            string `json:"claim_esrd_payment_amount"`
	NonPayableProfessionalCompAmount  string `json:"non_payable_professional_comp_amount"`
}

// SupplementalAmount is a claim level AMT segment
type SupplementalAmount struct {
	AmountQualifierCode string `json:"amount_qualifier_code"`
	Amt                 string `json:"amt"`
	CreditDebitFlagCode string `json:"credit_debit_flag_code"`
}

// SupplementalQuantity is a claim level QTY segment
type SupplementalQuantity struct {
	QuantityQualifierCode  string `json:"quantity_qualifier_code"`
	Qty                    string `json:"qty"`
	CompositeUnitOfMeasure string `json:"composite_unit_of_measure"`
}

// Adjustment is one CAS segment: a group code and its six reason slots.
// Slots the segment does not reach are "".
type Adjustment struct {
	GroupCode string `json:"adjustment_grp_cd"`
	ReasonCd1 string `json:"adjustment_reason_cd_1"`
	Amount1   string `json:"adjustment_amount_1"`
	Quantity1 string `json:"adjustment_quantity_1"`
	ReasonCd2 string `json:"adjustment_reason_cd_2"`
	Amount2   string `json:"adjustment_amount_2"`
	Quantity2 string `json:"adjustment_quantity_2"`
	ReasonCd3 string `json:"adjustment_reason_cd_3"`
	Amount3   string `json:"adjustment_amount_3"`
	Quantity3 string `json:"adjustment_quantity_3"`
	ReasonCd4 string `json:"adjustment_reason_cd_4"`
	Amount4   string `json:"adjustment_amount_4"`
	Quantity4 string `json:"adjustment_quantity_4"`
	ReasonCd5 string `json:"adjustment_reason_cd_5"`
	Amount5   string `json:"adjustment_amount_5"`
	Quantity5 string `json:"adjustment_quantity_5"`
	ReasonCd6 string `json:"adjustment_reason_cd_6"`
	Amount6   string `json:"adjustment_amount_6"`
	Quantity6 string `json:"adjustment_quantity_6"`
}

// ClaimLine is one 2110 service payment loop
type ClaimLine struct {
	Details                LineDetails          `json:"claim_line_details"`
	Dates                  DateTime             `json:"claim_line_dates"`
	SupplementalAmount     []LineAmount         `json:"claim_line_supplemental_amount"`
	SupplementalQuantity   []LineQuantity       `json:"claim_line_supplemental_quantity"`
	Remarks                []Remark             `json:"claim_line_remarks"`
	Adjustments            []Adjustment         `json:"claim_line_adjustments"`
	RelatedIdentifications []LineIdentification `json:"claim_line_related_identifications"`
}

// LineDetails is the SVC segment
type LineDetails struct {
	PrcdrCd                     string `json:"prcdr_cd"`
	ChrgAmt                     string `json:"chrg_amt"`
	PaidAmt                     string `json:"paid_amt"`
	RevCd                       string `json:"rev_cd"`
	Units                       string `json:"units"`
	OriginalPrcdrCd             string `json:"original_prcdr_cd"`
	OriginalUnitsOfServiceCount string `json:"original_units_of_service_count"`
}

type LineAmount struct {
	AmtQualifierCd      string `json:"amt_qualifier_cd"`
	Amt                 string `json:"amt"`
	CreditDebitFlagCode string `json:"credit_debit_flag_code"`
}

type LineQuantity struct {
	QuantityQualifier      string `json:"quantity_qualifier"`
	Qty                    string `json:"qty"`
	CompositeUnitOfMeasure string `json:"composite_unit_of_measure"`
}

// Remark is an LQ health care remark code
type Remark struct {
	QualifierCd string `json:"qualifier_cd"`
	RemarkCd    string `json:"remark_cd"`
}

type LineIdentification struct {
	IDCodeQualifier string `json:"id_code_qualifier"`
	ID              string `json:"id"`
	Description     string `json:"description"`
}

// ProviderAdjustment is one PLB segment. Each of the six groups is nil when
// the segment stops before it, which marshals as null rather than "".
type ProviderAdjustment struct {
	ProviderIdentifier string  `json:"provider_identifier"`
	FiscalPeriodDate   string  `json:"fiscal_period_date"`
	ReasonCd1          *string `json:"provider_adjustment_reason_cd_1"`
	ID1                *string `json:"provider_adjustment_id_1"`
	Amt1               *string `json:"provider_adjustment_amt_1"`
	ReasonCd2          *string `json:"provider_adjustment_reason_cd_2"`
	ID2                *string `json:"provider_adjustment_id_2"`
	Amt2               *string `json:"provider_adjustment_amt_2"`
	ReasonCd3          *string `json:"provider_adjustment_reason_cd_3"`
	ID3                *string `json:"provider_adjustment_id_3"`
	Amt3               *string `json:"provider_adjustment_amt_3"`
	ReasonCd4          *string `json:"provider_adjustment_reason_cd_4"`
	ID4                *string `json:"provider_adjustment_id_4"`
	Amt4               *string `json:"provider_adjustment_amt_4"`
	ReasonCd5          *string `json:"provider_adjustment_reason_cd_5"`
	ID5                *string `json:"provider_adjustment_id_5"`
	Amt5               *string `json:"provider_adjustment_amt_5"`
	ReasonCd6          *string `json:"provider_adjustment_reason_cd_6"`
	ID6                *string `json:"provider_adjustment_id_6"`
	Amt6               *string `json:"provider_adjustment_amt_6"`
}

// HeaderInfo is the 2000 header number loop (LX, TS3, TS2)
type HeaderInfo struct {
	AssignedNum string `json:"assigned_num"`
	TS3         TS3    `json:"ts3"`
	TS2         TS2    `json:"ts2"`
}

// TS3 is the provider summary information segment
type TS3 struct {
	ProviderIdentifier                string `json:"provider_identifier"`
	FacilityCodeValue                 string `json:"facility_code_value"`
	FiscalPeriodDate                  string `json:"fiscal_period_date"`
	TotalClaimCount                   string `json:"total_claim_count"`
	TotalClaimChangeAmount            string `json:"total_claim_change_amount"`
	TotalCoveredChargeAmount          string `json:"total_covered_charge_amount"`
	TotalNoncoveredChargeAmount       string `json:"total_noncovered_charge_amount"`
	TotalDeniedChargeAmount           string `json:"total_denied_charge_amount"`
	TotalProviderAmount               string `json:"total_provider_amount"`
	TotalInterestAmount               string `json:"total_interest_amount"`
	TotalContractualAdjustmentAmount  string `json:"total_contractual_adjustment_amount"`
	TotalGrammRudmanReductionAmount   string `json:"total_gramm_rudman_reduction_amount"`
	TotalMSPPayerAmount               string `json:"total_msp_payer_amount"`
	TotalBloodDeductibleAmount        string `json:"total_blood_deductible_amount"`
	TotalNonLabChargeAmount           string `json:"total_non_lab_charge_amount"`
	TotalCoinsuranceAmount            string `json:"total_coinsurance_amount"`
	TotalHCPCSReportedChargeAmount    string `json:"total_hcpcs_reported_charge_amount"`
	TotalHCPCSPayableAmount           string `json:"total_hcpcs_payable_amount"`
	TotalDeductibleAmount             string `json:"total_deductible_amount"`
	TotalProfessionalComponentAmount  string `json:"total_professional_component_amount"`
	TotalMSPPatientLiabilityMetAmount string `json:"total_msp_patient_liability_met_amount"`
	TotalPatientReimbursementAmount   string `json:"total_patient_reimbursement_amount"`
	TotalPIPClaimCount                string `json:"total_pip_claim_count"`
	TotalPIPAdjustmentAmount          string `json:"total_pip_adjustment_amount"`
}

// TS2 is the provider supplemental summary segment
type TS2 struct {
	TotalDRGAmount                   string `json:"total_drg_amount"`
	TotalFederalSpecificAmount       string `json:"total_federal_specific_amount"`
	TotalHospitalSpecificAmount      string `json:"total_hospital_specific_amount"`
	TotalDisproportionateAmount      string `json:"total_disproportionate_amount"`
	TotalCapitalAmount               string `json:"total_capital_amount"`
	TotalIndirectMedicalEducationAmt string `json:"total_indirect_medical_education_amount"`
	TotalOutlierDayCount             string `json:"total_outlier_day_count"`
	TotalDayOutlierAmount            string `json:"total_day_outlier_amount"`
	TotalCostOutlierAmount           string `json:"total_cost_outlier_amount"`
	AverageDRGLengthOfStay           string `json:"average_drg_length_of_stay"`
	TotalDischargeCount              string `json:"total_discharge_count"`
	TotalCostReportDayCount          string `json:"total_cost_report_day_count"`
	TotalCoveredDayCount             string `json:"total_covered_day_count"`
	TotalNoncoveredDayCount          string `json:"total_noncovered_day_count"`
	TotalMSPPassThroughAmount        string `json:"total_msp_pass_through_amount"`
	AverageDRGWeight                 string `json:"average_drg_weight"`
	TotalPPSCapitalFSPDRGAmount      string `json:"total_pps_capital_fsp_drg_amount"`
	TotalPSPCapitalHSPDRGAmount      string `json:"total_psp_capital_hsp_drg_amount"`
	TotalPPSDSHDRGAmount             string `json:"total_pps_dsh_drg_amount"`
}
